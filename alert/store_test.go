package alert

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"aia-port/model"
	"aia-port/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tokenA = strings.Repeat("A", DefaultTokenChars)
	tokenB = strings.Repeat("B", DefaultTokenChars)
	tokenC = strings.Repeat("C", DefaultTokenChars)
)

// recordingStore 记录对blob存储的调用次数，并可注入写入失败
type recordingStore struct {
	storage.BlobStore
	stores   int
	loads    int
	failNext error
}

func (r *recordingStore) Store(key string, blob []byte) error {
	r.stores++
	if r.failNext != nil {
		err := r.failNext
		r.failNext = nil
		return err
	}
	return r.BlobStore.Store(key, blob)
}

func (r *recordingStore) Load(key string, blob []byte) error {
	r.loads++
	return r.BlobStore.Load(key, blob)
}

func newTestStore(t *testing.T, opts ...Option) (*Store, *recordingStore) {
	t.Helper()
	blobs := &recordingStore{BlobStore: storage.NewMemoryStore(map[string]int{storage.AlertsKey: 4096})}
	s, err := NewStore(blobs, opts...)
	require.NoError(t, err)
	return s, blobs
}

func rawTable(t *testing.T, s *Store) []byte {
	t.Helper()
	buf := make([]byte, s.Size())
	require.NoError(t, s.LoadAlerts(buf))
	return buf
}

func TestStoreLoadDeleteSingle(t *testing.T) {
	s, _ := newTestStore(t)
	assert.False(t, s.Exists())
	assert.Equal(t, 0, s.Size())
	require.NoError(t, s.LoadAlerts(nil))

	require.NoError(t, s.StoreAlert(tokenA, 1000000000, 5000, 2))
	assert.True(t, s.Exists())
	require.Equal(t, s.SlotSize(), s.Size())
	assert.Equal(t, 29, s.Size())

	a, err := s.LoadAlert(rawTable(t, s)[:s.SlotSize()])
	require.NoError(t, err)
	assert.Equal(t, model.Alert{Token: tokenA, ScheduledTime: 1000000000, Duration: 5000, Type: model.AlertTypeReminder}, a)

	require.NoError(t, s.DeleteAlert(tokenA))
	assert.Equal(t, 0, s.Size())
	alerts, err := s.Alerts()
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestStoreUpdateInPlace(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.StoreAlert(tokenA, 10, 100, model.AlertTypeTimer))
	require.NoError(t, s.StoreAlert(tokenB, 20, 200, model.AlertTypeAlarm))
	before := s.Size()

	require.NoError(t, s.StoreAlert(tokenA, 11, 111, model.AlertTypeReminder))
	assert.Equal(t, before, s.Size())

	alerts, err := s.Alerts()
	require.NoError(t, err)
	assert.Equal(t, []model.Alert{
		{Token: tokenA, ScheduledTime: 11, Duration: 111, Type: model.AlertTypeReminder},
		{Token: tokenB, ScheduledTime: 20, Duration: 200, Type: model.AlertTypeAlarm},
	}, alerts)
}

func TestStoreInsertionGrowth(t *testing.T) {
	s, _ := newTestStore(t)
	for i := 0; i < 5; i++ {
		token := fmt.Sprintf("token-%010d", i)
		require.NoError(t, s.StoreAlert(token, uint64(i), uint32(i), model.AlertTypeAlarm))
		assert.Equal(t, (i+1)*s.SlotSize(), s.Size())
	}
	prev := rawTable(t, s)

	require.NoError(t, s.StoreAlert(tokenC, 99, 99, model.AlertTypeTimer))
	table := rawTable(t, s)
	require.Len(t, table, len(prev)+s.SlotSize())
	assert.Equal(t, prev, table[:len(prev)], "已有记录不应改变")

	last, err := s.LoadAlert(table[len(prev):])
	require.NoError(t, err)
	assert.Equal(t, tokenC, last.Token)
}

func TestDeleteCompaction(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.StoreAlert(tokenA, 1, 10, model.AlertTypeTimer))
	require.NoError(t, s.StoreAlert(tokenB, 2, 20, model.AlertTypeAlarm))
	require.NoError(t, s.StoreAlert(tokenC, 3, 30, model.AlertTypeReminder))

	require.NoError(t, s.DeleteAlert(tokenB))
	assert.Equal(t, 2*s.SlotSize(), s.Size())
	alerts, err := s.Alerts()
	require.NoError(t, err)
	assert.Equal(t, []string{tokenA, tokenC}, tokens(alerts))
}

func TestDeleteFirstShiftsLeft(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.StoreAlert(tokenA, 1000000000, 5000, model.AlertTypeReminder))
	require.NoError(t, s.StoreAlert(tokenB, 1000000600, 7000, model.AlertTypeAlarm))

	require.NoError(t, s.DeleteAlert(tokenA))
	table := rawTable(t, s)
	require.Len(t, table, s.SlotSize())
	b, err := s.LoadAlert(table[:s.SlotSize()])
	require.NoError(t, err)
	assert.Equal(t, model.Alert{Token: tokenB, ScheduledTime: 1000000600, Duration: 7000, Type: model.AlertTypeAlarm}, b)
}

func TestDeleteAbsentUnchanged(t *testing.T) {
	s, blobs := newTestStore(t)
	require.NoError(t, s.StoreAlert(tokenA, 1, 10, model.AlertTypeTimer))
	require.NoError(t, s.StoreAlert(tokenB, 2, 20, model.AlertTypeAlarm))
	before := rawTable(t, s)
	stores := blobs.stores

	require.NoError(t, s.DeleteAlert(tokenC))
	assert.Equal(t, before, rawTable(t, s))
	assert.Equal(t, stores+1, blobs.stores, "未找到时仍按原长度写回")

	// 空表上删除同样成功
	empty, _ := newTestStore(t)
	require.NoError(t, empty.DeleteAlert(tokenA))
	assert.Equal(t, 0, empty.Size())
}

func TestInvalidTokenNoIO(t *testing.T) {
	s, blobs := newTestStore(t)
	assert.ErrorIs(t, s.StoreAlert("short", 1, 1, model.AlertTypeTimer), ErrInvalidArgument)
	assert.ErrorIs(t, s.StoreAlert(tokenA+"X", 1, 1, model.AlertTypeTimer), ErrInvalidArgument)
	assert.ErrorIs(t, s.StoreAlert("\x00"+tokenA[1:], 1, 1, model.AlertTypeTimer), ErrInvalidArgument)
	assert.ErrorIs(t, s.DeleteAlert(""), ErrInvalidArgument)
	_, err := s.LoadAlert(nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	assert.Zero(t, blobs.stores)
	assert.Zero(t, blobs.loads)
	assert.False(t, s.Exists())
}

func TestCapacityBoundary(t *testing.T) {
	// 默认内存表给告警64字节，只能容纳两个29字节的槽
	s, err := NewStore(storage.NewMemoryStore(storage.DefaultCapacities))
	require.NoError(t, err)
	require.NoError(t, s.StoreAlert(tokenA, 1, 1, model.AlertTypeTimer))
	require.NoError(t, s.StoreAlert(tokenB, 2, 2, model.AlertTypeTimer))
	before := s.Size()

	err = s.StoreAlert(tokenC, 3, 3, model.AlertTypeTimer)
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, storage.ErrCapacity)
	// 后端容量不足属于存储失败，不是表自身的上限
	assert.NotErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, before, s.Size())

	// 已满时更新已有告警仍然可以
	require.NoError(t, s.StoreAlert(tokenB, 5, 5, model.AlertTypeAlarm))
	assert.Equal(t, before, s.Size())
}

func TestMaxAlerts(t *testing.T) {
	s, blobs := newTestStore(t, WithMaxAlerts(2))
	require.NoError(t, s.StoreAlert(tokenA, 1, 1, model.AlertTypeTimer))
	require.NoError(t, s.StoreAlert(tokenB, 2, 2, model.AlertTypeTimer))
	stores := blobs.stores

	err := s.StoreAlert(tokenC, 3, 3, model.AlertTypeTimer)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, stores, blobs.stores)
	assert.Equal(t, 2*s.SlotSize(), s.Size())

	require.NoError(t, s.StoreAlert(tokenA, 9, 9, model.AlertTypeTimer))
}

func TestCorruptTable(t *testing.T) {
	blobs := storage.NewMemoryStore(map[string]int{storage.AlertsKey: 256})
	require.NoError(t, blobs.Store(storage.AlertsKey, make([]byte, 30)))
	s, err := NewStore(blobs)
	require.NoError(t, err)

	assert.ErrorIs(t, s.StoreAlert(tokenA, 1, 1, model.AlertTypeTimer), ErrCorruptTable)
	assert.ErrorIs(t, s.DeleteAlert(tokenA), ErrCorruptTable)
	_, err = s.Alerts()
	assert.ErrorIs(t, err, ErrCorruptTable)
	assert.Equal(t, 30, s.Size())
}

func TestEmptySlotInsideTable(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.StoreAlert(tokenA, 1, 1, model.AlertTypeTimer))
	// 外部写入的尾部空槽
	table := append(rawTable(t, s), make([]byte, s.SlotSize())...)
	blobs := s.blobs
	require.NoError(t, blobs.Store(storage.AlertsKey, table))

	require.NoError(t, s.StoreAlert(tokenB, 2, 2, model.AlertTypeAlarm))
	// 新告警写入第一个空槽，表按原长度加一个槽写回
	assert.Equal(t, 3*s.SlotSize(), s.Size())
	alerts, err := s.Alerts()
	require.NoError(t, err)
	assert.Equal(t, []string{tokenA, tokenB}, tokens(alerts))
}

func TestStoreFailureLeavesTable(t *testing.T) {
	s, blobs := newTestStore(t)
	require.NoError(t, s.StoreAlert(tokenA, 1, 1, model.AlertTypeTimer))
	before := rawTable(t, s)

	blobs.failNext = errors.New("flash write error")
	err := s.StoreAlert(tokenB, 2, 2, model.AlertTypeTimer)
	assert.ErrorIs(t, err, ErrStorage)
	assert.Equal(t, before, rawTable(t, s))

	blobs.failNext = errors.New("flash write error")
	assert.ErrorIs(t, s.DeleteAlert(tokenA), ErrStorage)
	assert.Equal(t, before, rawTable(t, s))
}

func TestLoadAlertsMissingBlob(t *testing.T) {
	s, _ := newTestStore(t)
	assert.ErrorIs(t, s.LoadAlerts(make([]byte, 29)), ErrInvalidArgument)
	assert.NoError(t, s.LoadAlerts([]byte{}))
}

func TestCustomTokenCharsAndKey(t *testing.T) {
	blobs := storage.NewMemoryStore(map[string]int{"alerts-v2": 1024})
	s, err := NewStore(blobs, WithTokenChars(32), WithKey("alerts-v2"))
	require.NoError(t, err)
	assert.Equal(t, 45, s.SlotSize())

	token := strings.Repeat("t", 32)
	require.NoError(t, s.StoreAlert(token, 7, 8, model.AlertTypeAlarm))
	assert.Equal(t, 45, blobs.Size("alerts-v2"))
	assert.ErrorIs(t, s.StoreAlert(tokenA, 7, 8, model.AlertTypeAlarm), ErrInvalidArgument)

	_, err = NewStore(blobs, WithKey(""))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewStore(nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSyncStoreConcurrent(t *testing.T) {
	s, _ := newTestStore(t)
	ss := NewSyncStore(s)
	assert.Equal(t, DefaultTokenChars, ss.TokenChars())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token := fmt.Sprintf("sync-%011d", i)
			assert.NoError(t, ss.StoreAlert(token, uint64(i), 1, model.AlertTypeTimer))
		}(i)
	}
	wg.Wait()

	assert.True(t, ss.Exists())
	assert.Equal(t, 20*s.SlotSize(), ss.Size())
	alerts, err := ss.Alerts()
	require.NoError(t, err)
	assert.Len(t, alerts, 20)

	for _, a := range alerts {
		require.NoError(t, ss.DeleteAlert(a.Token))
	}
	assert.Equal(t, 0, ss.Size())
}

func tokens(alerts []model.Alert) []string {
	out := make([]string, len(alerts))
	for i, a := range alerts {
		out[i] = a.Token
	}
	return out
}
