// Package playback 定时扫描本地告警表，触发到期告警并清理过期告警。
package playback

import (
	"context"
	"time"

	"aia-port/alert"
	"aia-port/clock"
	"aia-port/log"
	"aia-port/model"
	"aia-port/tone"
)

// MaxToneDuration 是一次触发合成的最长提示音
const MaxToneDuration = 10 * time.Second

// Sink 接收需要播放或停止的告警
type Sink interface {
	// Play 开始播放告警，frames为Opus编码的提示音，没有编码器时为空
	Play(a model.Alert, frames [][]byte)
	// Stop 告警有效期结束
	Stop(a model.Alert)
}

// Scheduler 是告警调度器
type Scheduler struct {
	store      *alert.SyncStore
	clock      *clock.Clock
	sink       Sink
	encoder    *tone.Encoder
	sampleRate int
	interval   time.Duration

	// fired 记录已经触发的告警及其触发时间，告警被更新为新的时间后会再次触发
	fired map[string]uint64
}

// Option 配置调度器
type Option func(*Scheduler)

// WithEncoder 设置提示音编码器
func WithEncoder(enc *tone.Encoder, sampleRate int) Option {
	return func(s *Scheduler) {
		s.encoder = enc
		s.sampleRate = sampleRate
	}
}

// WithInterval 设置扫描间隔
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		s.interval = d
	}
}

// New 创建调度器
func New(store *alert.SyncStore, clk *clock.Clock, sink Sink, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:    store,
		clock:    clk,
		sink:     sink,
		interval: 500 * time.Millisecond,
		fired:    map[string]uint64{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run 按间隔扫描告警表，直到ctx被取消
func (s *Scheduler) Run(ctx context.Context) {
	defer log.Debugf("告警调度协程已退出")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Tick(); err != nil {
				log.Errorf("扫描告警表失败: %v", err)
			}
		}
	}
}

// Tick 扫描一次告警表
func (s *Scheduler) Tick() error {
	alerts, err := s.store.Alerts()
	if err != nil {
		return err
	}
	nowMs := s.clock.NowMs()

	present := make(map[string]bool, len(alerts))
	for _, a := range alerts {
		present[a.Token] = true

		if nowMs < a.ScheduledTime*1000 {
			// 尚未到期
			continue
		}

		if nowMs >= a.EndMs() {
			// 有效期已过，从本地删除
			if _, ok := s.fired[a.Token]; ok {
				if a.Type.Valid() {
					s.sink.Stop(a)
				}
				delete(s.fired, a.Token)
			}
			log.Infof("告警已过期，删除: token(%s) type(%s)", a.Token, a.Type)
			if err := s.store.DeleteAlert(a.Token); err != nil {
				log.Errorf("删除过期告警失败: %v", err)
			}
			continue
		}

		if at, ok := s.fired[a.Token]; ok && at == a.ScheduledTime {
			continue
		}
		s.fired[a.Token] = a.ScheduledTime

		if !a.Type.Valid() {
			log.Warnf("拒绝播放未知类型的告警: token(%s) type(%s)", a.Token, a.Type)
			continue
		}
		s.fire(a, a.EndMs()-nowMs)
	}

	// 被外部删除的告警不再跟踪
	for token := range s.fired {
		if !present[token] {
			delete(s.fired, token)
		}
	}
	return nil
}

// fire 合成提示音并交给sink播放
func (s *Scheduler) fire(a model.Alert, remainingMs uint64) {
	log.Infof("告警触发: token(%s) type(%s) duration(%dms)", a.Token, a.Type, a.Duration)

	var frames [][]byte
	if s.encoder != nil {
		d := min(time.Duration(remainingMs)*time.Millisecond, MaxToneDuration)
		pcm, err := tone.PCM(a.Type, s.sampleRate, d)
		if err != nil {
			log.Errorf("合成提示音失败: %v", err)
		} else if frames, err = s.encoder.Frames(pcm); err != nil {
			log.Errorf("编码提示音失败: %v", err)
			frames = nil
		}
	}
	s.sink.Play(a, frames)
}
