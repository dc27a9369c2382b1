package storage

import (
	"testing"

	"aia-port/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortSecret(t *testing.T) {
	p := NewPort(NewMemoryStore(DefaultCapacities))
	secret := make([]byte, 32)
	for i := range secret {
		secret[i] = byte(i)
	}
	require.NoError(t, p.StoreSecret(secret))
	got, err := p.LoadSecret(32)
	require.NoError(t, err)
	assert.Equal(t, secret, got)

	assert.Error(t, p.StoreSecret(nil))
	assert.ErrorIs(t, p.StoreSecret(make([]byte, 33)), ErrCapacity)
}

func TestPortTopicRoot(t *testing.T) {
	p := NewPort(NewMemoryStore(DefaultCapacities))
	root, err := p.LoadTopicRoot()
	require.NoError(t, err)
	assert.Empty(t, root)

	require.NoError(t, p.StoreTopicRoot("ais/v1/abcdef"))
	root, err = p.LoadTopicRoot()
	require.NoError(t, err)
	assert.Equal(t, "ais/v1/abcdef", root)
}

func TestPortVolume(t *testing.T) {
	p := NewPort(NewMemoryStore(DefaultCapacities))
	assert.Equal(t, DefaultVolume, p.LoadVolume())

	require.NoError(t, p.StoreVolume(80))
	assert.Equal(t, uint8(80), p.LoadVolume())
	assert.Error(t, p.StoreVolume(MaxVolume+1))
	assert.Equal(t, uint8(80), p.LoadVolume())
}

func TestOpen(t *testing.T) {
	s, closer, err := Open(config.StorageConfig{Backend: "memory"})
	require.NoError(t, err)
	defer closer.Close()
	assert.IsType(t, &MemoryStore{}, s)

	s, closer, err = Open(config.StorageConfig{Backend: "file", Dir: t.TempDir()})
	require.NoError(t, err)
	defer closer.Close()
	assert.IsType(t, &FileStore{}, s)

	_, _, err = Open(config.StorageConfig{Backend: "tape"})
	assert.Error(t, err)
}
