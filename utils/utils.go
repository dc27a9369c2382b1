package utils

import (
	"net"
	"strings"

	"github.com/google/uuid"
)

// GetLocalIP 返回本机第一个非回环的IPv4地址，找不到时返回127.0.0.1
func GetLocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return "127.0.0.1"
}

// NewAlertToken 生成n个字符的告警令牌，由随机UUID的十六进制字符组成
func NewAlertToken(n int) string {
	var b strings.Builder
	for b.Len() < n {
		b.WriteString(strings.ReplaceAll(uuid.NewString(), "-", ""))
	}
	return b.String()[:n]
}
