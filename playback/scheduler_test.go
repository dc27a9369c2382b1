package playback

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"aia-port/alert"
	"aia-port/clock"
	"aia-port/model"
	"aia-port/storage"
	"aia-port/tone"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu      sync.Mutex
	played  []model.Alert
	frames  [][][]byte
	stopped []model.Alert
}

func (r *recordingSink) Play(a model.Alert, frames [][]byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.played = append(r.played, a)
	r.frames = append(r.frames, frames)
}

func (r *recordingSink) Stop(a model.Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = append(r.stopped, a)
}

func (r *recordingSink) playedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.played)
}

type fakeTime struct{ t time.Time }

func (f *fakeTime) now() time.Time { return f.t }

func setup(t *testing.T) (*alert.SyncStore, *clock.Clock, *fakeTime) {
	t.Helper()
	s, err := alert.NewStore(storage.NewMemoryStore(map[string]int{storage.AlertsKey: 1024}))
	require.NoError(t, err)
	ft := &fakeTime{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	clk := clock.NewWithSource(ft.now)
	clk.Set(1000000000)
	return alert.NewSyncStore(s), clk, ft
}

func TestSchedulerFiresOnceAndExpires(t *testing.T) {
	store, clk, ft := setup(t)
	sink := &recordingSink{}
	sched := New(store, clk, sink)

	token := strings.Repeat("A", 16)
	require.NoError(t, store.StoreAlert(token, 1000000010, 5000, model.AlertTypeAlarm))

	require.NoError(t, sched.Tick())
	assert.Empty(t, sink.played, "未到期不触发")

	ft.t = ft.t.Add(10 * time.Second)
	require.NoError(t, sched.Tick())
	require.Len(t, sink.played, 1)
	assert.Equal(t, token, sink.played[0].Token)
	assert.Nil(t, sink.frames[0])

	ft.t = ft.t.Add(2 * time.Second)
	require.NoError(t, sched.Tick())
	assert.Len(t, sink.played, 1, "同一次触发只播放一次")

	ft.t = ft.t.Add(3 * time.Second)
	require.NoError(t, sched.Tick())
	require.Len(t, sink.stopped, 1)
	assert.Equal(t, 0, store.Size(), "过期告警被删除")
}

func TestSchedulerRefiresAfterUpdate(t *testing.T) {
	store, clk, ft := setup(t)
	sink := &recordingSink{}
	sched := New(store, clk, sink)

	token := strings.Repeat("T", 16)
	require.NoError(t, store.StoreAlert(token, 1000000000, 60000, model.AlertTypeTimer))
	require.NoError(t, sched.Tick())
	require.Len(t, sink.played, 1)

	// 推迟告警
	require.NoError(t, store.StoreAlert(token, 1000000005, 60000, model.AlertTypeTimer))
	ft.t = ft.t.Add(5 * time.Second)
	require.NoError(t, sched.Tick())
	assert.Len(t, sink.played, 2)
}

func TestSchedulerRejectsUnknownType(t *testing.T) {
	store, clk, _ := setup(t)
	sink := &recordingSink{}
	sched := New(store, clk, sink)

	require.NoError(t, store.StoreAlert(strings.Repeat("X", 16), 1000000000, 5000, model.AlertType(42)))
	require.NoError(t, sched.Tick())
	assert.Empty(t, sink.played)
	assert.Equal(t, 29, store.Size(), "未知类型仍保留在存储中")
}

func TestSchedulerWithEncoder(t *testing.T) {
	store, clk, _ := setup(t)
	enc, err := tone.NewEncoder(16000)
	require.NoError(t, err)
	sink := &recordingSink{}
	sched := New(store, clk, sink, WithEncoder(enc, 16000))

	require.NoError(t, store.StoreAlert(strings.Repeat("R", 16), 1000000000, 600, model.AlertTypeReminder))
	require.NoError(t, sched.Tick())
	require.Len(t, sink.frames, 1)
	// 剩余600毫秒，10个60毫秒帧
	assert.Len(t, sink.frames[0], 10)
}

func TestSchedulerRun(t *testing.T) {
	store, clk, _ := setup(t)
	sink := &recordingSink{}
	sched := New(store, clk, sink, WithInterval(5*time.Millisecond))
	require.NoError(t, store.StoreAlert(strings.Repeat("Z", 16), 1000000000, 60000, model.AlertTypeAlarm))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return sink.playedCount() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
