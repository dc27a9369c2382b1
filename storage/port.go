package storage

import (
	"fmt"

	"aia-port/log"
)

// 音量范围
const (
	MinVolume     uint8 = 0
	MaxVolume     uint8 = 100
	DefaultVolume uint8 = 50
)

// Port 在blob存储之上提供设备端需要持久化的其他数据：
// 端到端加密的共享密钥、消息主题根和本地音量
type Port struct {
	blobs BlobStore
}

// NewPort 创建端口
func NewPort(blobs BlobStore) *Port {
	return &Port{blobs: blobs}
}

// StoreSecret 持久化共享密钥
func (p *Port) StoreSecret(secret []byte) error {
	if len(secret) == 0 {
		return fmt.Errorf("共享密钥为空")
	}
	return p.blobs.Store(SecretKey, secret)
}

// LoadSecret 读取共享密钥，size为密钥长度
func (p *Port) LoadSecret(size int) ([]byte, error) {
	secret := make([]byte, size)
	if err := p.blobs.Load(SecretKey, secret); err != nil {
		return nil, fmt.Errorf("读取共享密钥失败: %w", err)
	}
	return secret, nil
}

// StoreTopicRoot 持久化消息主题根
func (p *Port) StoreTopicRoot(root string) error {
	return p.blobs.Store(TopicRootKey, []byte(root))
}

// LoadTopicRoot 读取消息主题根，不存在时返回空字符串
func (p *Port) LoadTopicRoot() (string, error) {
	if !p.blobs.Exists(TopicRootKey) {
		return "", nil
	}
	buf := make([]byte, p.blobs.Size(TopicRootKey))
	if err := p.blobs.Load(TopicRootKey, buf); err != nil {
		return "", fmt.Errorf("读取主题根失败: %w", err)
	}
	return string(buf), nil
}

// StoreVolume 持久化音量
func (p *Port) StoreVolume(volume uint8) error {
	if volume > MaxVolume {
		return fmt.Errorf("音量超出范围: %d", volume)
	}
	return p.blobs.Store(VolumeKey, []byte{volume})
}

// LoadVolume 读取持久化的音量，任何失败都返回DefaultVolume
func (p *Port) LoadVolume() uint8 {
	if p.blobs.Size(VolumeKey) != 1 {
		return DefaultVolume
	}
	var buf [1]byte
	if err := p.blobs.Load(VolumeKey, buf[:]); err != nil {
		log.Warnf("读取音量失败，使用默认音量: %v", err)
		return DefaultVolume
	}
	if buf[0] > MaxVolume {
		return DefaultVolume
	}
	return buf[0]
}
