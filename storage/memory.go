package storage

import (
	"fmt"
	"sync"

	"aia-port/log"
)

// DefaultCapacities 是内存存储默认注册的键及其容量（字节）
var DefaultCapacities = map[string]int{
	SecretKey:    32,
	AlertsKey:    64,
	TopicRootKey: 16,
	VolumeKey:    1,
}

// memorySlot 是固定表中的一项
type memorySlot struct {
	data    []byte // 容量固定的存储空间
	used    int    // 已使用的字节数
	written bool   // 是否写入过
}

// MemoryStore 是容量固定的内存blob表，只接受预先注册的键。
// 没有非易失存储的平台可以直接使用，也用于测试。
type MemoryStore struct {
	mu    sync.Mutex
	slots map[string]*memorySlot
}

// NewMemoryStore 按键和容量创建内存存储
func NewMemoryStore(capacities map[string]int) *MemoryStore {
	s := &MemoryStore{slots: make(map[string]*memorySlot, len(capacities))}
	for key, capacity := range capacities {
		s.slots[key] = &memorySlot{data: make([]byte, capacity)}
	}
	return s
}

// Store 将blob复制到键对应的固定空间
func (s *MemoryStore) Store(key string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[key]
	if !ok {
		log.Errorf("blob存储键无效: key(%s)", key)
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if len(blob) > len(slot.data) {
		log.Errorf("blob存储大小错误: key(%s), capacity(%d), size(%d)", key, len(slot.data), len(blob))
		return fmt.Errorf("%w: key(%s) capacity(%d) size(%d)", ErrCapacity, key, len(slot.data), len(blob))
	}
	copy(slot.data, blob)
	slot.used = len(blob)
	slot.written = true
	return nil
}

// Load 将键对应的内容复制到blob
func (s *MemoryStore) Load(key string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[key]
	if !ok {
		log.Errorf("blob读取键无效: key(%s)", key)
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if slot.used > len(blob) {
		log.Errorf("blob读取大小错误: key(%s), used(%d), size(%d)", key, slot.used, len(blob))
		return fmt.Errorf("%w: key(%s) used(%d) size(%d)", ErrTooLarge, key, slot.used, len(blob))
	}
	copy(blob, slot.data[:slot.used])
	return nil
}

// Size 返回键对应内容的字节数
func (s *MemoryStore) Size(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[key]
	if !ok {
		log.Errorf("blob键错误: %s", key)
		return 0
	}
	return slot.used
}

// Exists 判断键是否写入过
func (s *MemoryStore) Exists(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[key]
	return ok && slot.written
}

// Capacity 返回键的容量，未注册时返回0
func (s *MemoryStore) Capacity(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slot, ok := s.slots[key]; ok {
		return len(slot.data)
	}
	return 0
}
