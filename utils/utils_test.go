package utils

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAlertToken(t *testing.T) {
	for _, n := range []int{1, 16, 32, 45} {
		token := NewAlertToken(n)
		assert.Len(t, token, n)
		assert.NotContains(t, token, "-")
	}
	assert.NotEqual(t, NewAlertToken(16), NewAlertToken(16))
	assert.Empty(t, NewAlertToken(0))
}

func TestGetLocalIP(t *testing.T) {
	ip := net.ParseIP(GetLocalIP())
	if assert.NotNil(t, ip) {
		assert.NotNil(t, ip.To4())
	}
}
