package alert

import (
	"fmt"

	"aia-port/log"
	"aia-port/model"
	"aia-port/storage"
)

// Store 管理blob存储中的告警表。
//
// 每次调用都是对blob存储的一次完整读改写，调用之间不保留任何状态。
// Store不加锁，多个goroutine共用时使用SyncStore或自行串行化。
type Store struct {
	blobs     storage.BlobStore
	codec     Codec
	key       string
	maxAlerts int
}

// Option 配置Store
type Option func(*Store) error

// WithTokenChars 设置告警令牌长度
func WithTokenChars(n int) Option {
	return func(s *Store) error {
		codec, err := NewCodec(n)
		if err != nil {
			return err
		}
		s.codec = codec
		return nil
	}
}

// WithMaxAlerts 设置告警数量上限，0表示只受blob存储容量限制
func WithMaxAlerts(n int) Option {
	return func(s *Store) error {
		if n < 0 {
			return fmt.Errorf("%w: 告警数量上限%d", ErrInvalidArgument, n)
		}
		s.maxAlerts = n
		return nil
	}
}

// WithKey 设置告警表在blob存储中的键
func WithKey(key string) Option {
	return func(s *Store) error {
		if key == "" {
			return fmt.Errorf("%w: 空的存储键", ErrInvalidArgument)
		}
		s.key = key
		return nil
	}
}

// NewStore 创建告警表管理器
func NewStore(blobs storage.BlobStore, opts ...Option) (*Store, error) {
	if blobs == nil {
		return nil, fmt.Errorf("%w: blob存储为空", ErrInvalidArgument)
	}
	s := &Store{
		blobs: blobs,
		codec: Codec{tokenChars: DefaultTokenChars},
		key:   storage.AlertsKey,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Codec 返回告警表使用的编解码器
func (s *Store) Codec() Codec {
	return s.codec
}

// SlotSize 返回槽的字节数
func (s *Store) SlotSize() int {
	return s.codec.SlotSize()
}

// Size 返回告警表的字节数，不存在时为0
func (s *Store) Size() int {
	return s.blobs.Size(s.key)
}

// Exists 判断告警表blob是否存在
func (s *Store) Exists() bool {
	return s.blobs.Exists(s.key)
}

// tableSize 返回当前表长度并校验它是槽宽度的整数倍
func (s *Store) tableSize() (int, error) {
	size := s.Size()
	if size > storage.MaxBlobSize {
		return 0, fmt.Errorf("%w: 告警表大小%d超过上限%d", ErrInvalidArgument, size, storage.MaxBlobSize)
	}
	if size%s.SlotSize() != 0 {
		log.Errorf("告警表长度%d不是槽宽度%d的整数倍", size, s.SlotSize())
		return 0, fmt.Errorf("%w: 长度%d，槽宽度%d", ErrCorruptTable, size, s.SlotSize())
	}
	return size, nil
}

// LoadAlerts 将整个告警表读入buf。告警表不存在时，只有长度为0的buf能成功
func (s *Store) LoadAlerts(buf []byte) error {
	if !s.Exists() {
		if len(buf) != 0 {
			log.Errorf("告警表不存在，无法读取%d字节", len(buf))
			return fmt.Errorf("%w: 告警表不存在，读取长度%d", ErrInvalidArgument, len(buf))
		}
		return nil
	}
	if err := s.blobs.Load(s.key, buf); err != nil {
		log.Errorf("读取告警表失败: %v", err)
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}

// persist 将表的前size个字节写回blob存储
func (s *Store) persist(table []byte) error {
	if err := s.blobs.Store(s.key, table); err != nil {
		log.Errorf("写入告警表失败: %v", err)
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}

// StoreAlert 保存告警。令牌已存在时原地更新，否则写入第一个空槽
// 参数:
//   - token: 告警令牌，长度必须等于TokenChars
//   - scheduledTime: 自NTP纪元起的触发时间（秒）
//   - duration: 持续时间（毫秒）
//   - alertType: 告警类型，存储时不校验
//
// 返回:
//   - error: 参数无效、表已满、表损坏或存储失败时返回错误，此时已存储的表不变
func (s *Store) StoreAlert(token string, scheduledTime uint64, duration uint32, alertType model.AlertType) error {
	if err := s.codec.checkToken(token); err != nil {
		log.Errorf("告警令牌长度无效: %d", len(token))
		return err
	}
	if token[0] == 0 {
		return fmt.Errorf("%w: 令牌不能以0字节开头", ErrInvalidArgument)
	}

	size, err := s.tableSize()
	if err != nil {
		return err
	}
	slotSize := s.SlotSize()

	// 多分配一个槽，令牌不存在时用于追加新告警
	table := make([]byte, size+slotSize)
	if err := s.LoadAlerts(table[:size]); err != nil {
		return err
	}

	// 查找第一个空槽或令牌匹配的槽
	offset := -1
	updating := false
	for pos := 0; pos+slotSize <= len(table); pos += slotSize {
		slot := table[pos : pos+slotSize]
		if isEmpty(slot) {
			offset = pos
			break
		}
		if s.codec.matches(slot, token) {
			offset = pos
			updating = true
			break
		}
	}
	if offset < 0 {
		log.Errorf("保存告警失败: 本地告警数量已达上限")
		return ErrCapacityExceeded
	}
	if !updating && s.maxAlerts > 0 && offset/slotSize >= s.maxAlerts {
		log.Errorf("保存告警失败: 本地告警数量已达上限%d", s.maxAlerts)
		return fmt.Errorf("%w: 上限%d", ErrCapacityExceeded, s.maxAlerts)
	}

	a := model.Alert{Token: token, ScheduledTime: scheduledTime, Duration: duration, Type: alertType}
	if err := s.codec.Encode(table[offset:], a); err != nil {
		return err
	}

	// 更新时写回原长度，新增时多写一个槽
	storeSize := len(table)
	if updating {
		storeSize = size
	}
	if err := s.persist(table[:storeSize]); err != nil {
		return err
	}
	log.Debugf("已保存告警: token(%s) updating(%t) size(%d)", token, updating, storeSize)
	return nil
}

// DeleteAlert 删除告警并把后面的槽整体前移一个槽宽度。
// 令牌不存在不是错误，表按原长度写回。
func (s *Store) DeleteAlert(token string) error {
	if err := s.codec.checkToken(token); err != nil {
		log.Errorf("告警令牌长度无效: %d", len(token))
		return err
	}

	size, err := s.tableSize()
	if err != nil {
		return err
	}
	slotSize := s.SlotSize()

	table := make([]byte, size)
	if err := s.LoadAlerts(table); err != nil {
		return err
	}

	deleted := false
	for pos := 0; pos+slotSize <= size; pos += slotSize {
		slot := table[pos : pos+slotSize]
		if isEmpty(slot) {
			break
		}
		if s.codec.matches(slot, token) {
			copy(table[pos:], table[pos+slotSize:])
			deleted = true
			break
		}
	}

	storeSize := size
	if deleted {
		storeSize = size - slotSize
	}
	if err := s.persist(table[:storeSize]); err != nil {
		return err
	}
	log.Debugf("删除告警: token(%s) deleted(%t) size(%d)", token, deleted, storeSize)
	return nil
}

// LoadAlert 解码调用者从整表缓冲区中切出的一个槽
func (s *Store) LoadAlert(slot []byte) (model.Alert, error) {
	if slot == nil {
		return model.Alert{}, fmt.Errorf("%w: 槽为空", ErrInvalidArgument)
	}
	return s.codec.Decode(slot)
}

// Alerts 读取整个告警表并按槽顺序返回所有告警，遇到空槽即停止
func (s *Store) Alerts() ([]model.Alert, error) {
	size, err := s.tableSize()
	if err != nil {
		return nil, err
	}
	table := make([]byte, size)
	if err := s.LoadAlerts(table); err != nil {
		return nil, err
	}

	slotSize := s.SlotSize()
	alerts := make([]model.Alert, 0, size/slotSize)
	for pos := 0; pos+slotSize <= size; pos += slotSize {
		slot := table[pos : pos+slotSize]
		if isEmpty(slot) {
			break
		}
		a, err := s.LoadAlert(slot)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, nil
}
