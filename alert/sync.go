package alert

import (
	"sync"

	"aia-port/model"
)

// SyncStore 用一把锁串行化对整个告警表的访问，供多个goroutine共用
type SyncStore struct {
	mu    sync.Mutex
	store *Store
}

// NewSyncStore 包装Store
func NewSyncStore(store *Store) *SyncStore {
	return &SyncStore{store: store}
}

// TokenChars 返回告警令牌长度
func (s *SyncStore) TokenChars() int {
	return s.store.Codec().TokenChars()
}

func (s *SyncStore) StoreAlert(token string, scheduledTime uint64, duration uint32, alertType model.AlertType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.StoreAlert(token, scheduledTime, duration, alertType)
}

func (s *SyncStore) DeleteAlert(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.DeleteAlert(token)
}

func (s *SyncStore) LoadAlerts(buf []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.LoadAlerts(buf)
}

// LoadAlert 是纯解码，不访问存储，因此不加锁
func (s *SyncStore) LoadAlert(slot []byte) (model.Alert, error) {
	return s.store.LoadAlert(slot)
}

func (s *SyncStore) Alerts() ([]model.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Alerts()
}

func (s *SyncStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Size()
}

func (s *SyncStore) Exists() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Exists()
}
