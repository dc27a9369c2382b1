// Package storage 提供按键保存字节blob的持久化存储。
//
// 实现不要求线程安全，调用者需要自行串行化对同一个键的访问。
package storage

import "errors"

// 已知的blob键
const (
	SecretKey    = "AiaSharedSecretStorageKey"
	AlertsKey    = "AiaAllAlertsStorageKey"
	TopicRootKey = "AiaTopicRootKey"
	VolumeKey    = "AiaVolumeKey"
)

// MaxBlobSize 是单个blob允许的最大字节数
const MaxBlobSize = 1 << 20

var (
	// ErrUnknownKey 表示固定表中没有注册该键
	ErrUnknownKey = errors.New("未知的blob键")
	// ErrCapacity 表示blob超出了该键的容量
	ErrCapacity = errors.New("blob超出存储容量")
	// ErrTooLarge 表示已存储的blob比读取缓冲区大
	ErrTooLarge = errors.New("blob大于读取缓冲区")
)

// BlobStore 是按键持久化字节blob的存储
type BlobStore interface {
	// Store 持久化blob，覆盖已有内容。一次写入要么完整成功要么不生效
	Store(key string, blob []byte) error
	// Load 将已存储的blob读入blob缓冲区，已存储内容比缓冲区长时返回ErrTooLarge
	Load(key string, blob []byte) error
	// Size 返回已存储blob的字节数，不存在或出错时返回0
	Size(key string) int
	// Exists 判断blob是否存在
	Exists(key string) bool
}
