// Package tone 合成告警提示音并编码为Opus帧，推送给设备播放。
package tone

import (
	"fmt"
	"math"
	"time"

	"aia-port/model"

	"gopkg.in/hraban/opus.v2"
)

// FrameDuration 是每个Opus帧的时长（毫秒）
const FrameDuration = 60

// amplitude 是提示音的峰值幅度
const amplitude = 13000

// pattern 描述一种告警的提示音：一个周期内若干段响铃
type pattern struct {
	freq   float64         // 频率（Hz）
	period time.Duration   // 周期
	beeps  []time.Duration // 每段响铃的起止时间，成对出现
}

var patterns = map[model.AlertType]pattern{
	// 计时器：快速双响
	model.AlertTypeTimer: {freq: 880, period: time.Second, beeps: []time.Duration{
		0, 100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond,
	}},
	// 闹钟：持续单响
	model.AlertTypeAlarm: {freq: 660, period: time.Second, beeps: []time.Duration{
		0, 400 * time.Millisecond,
	}},
	// 提醒：一声长音
	model.AlertTypeReminder: {freq: 523.25, period: 2 * time.Second, beeps: []time.Duration{
		0, 800 * time.Millisecond,
	}},
}

// on 判断周期内偏移offset处是否在响铃
func (p pattern) on(offset time.Duration) bool {
	offset %= p.period
	for i := 0; i+1 < len(p.beeps); i += 2 {
		if offset >= p.beeps[i] && offset < p.beeps[i+1] {
			return true
		}
	}
	return false
}

// PCM 生成指定告警类型的16位单声道PCM，未知类型返回错误
// 参数:
//   - alertType: 告警类型
//   - sampleRate: 采样率
//   - duration: 提示音时长
//
// 返回:
//   - []int16: PCM采样
//   - error: 未知类型或参数无效时返回错误
func PCM(alertType model.AlertType, sampleRate int, duration time.Duration) ([]int16, error) {
	p, ok := patterns[alertType]
	if !ok {
		return nil, fmt.Errorf("未知的告警类型: %s", alertType)
	}
	if sampleRate <= 0 || duration < 0 {
		return nil, fmt.Errorf("提示音参数无效: sample_rate(%d) duration(%s)", sampleRate, duration)
	}

	n := int(int64(sampleRate) * int64(duration) / int64(time.Second))
	pcm := make([]int16, n)
	for i := range pcm {
		offset := time.Duration(int64(i) * int64(time.Second) / int64(sampleRate))
		if !p.on(offset) {
			continue
		}
		phase := 2 * math.Pi * p.freq * float64(i) / float64(sampleRate)
		pcm[i] = int16(amplitude * math.Sin(phase))
	}
	return pcm, nil
}

// Encoder 将PCM编码为Opus帧
type Encoder struct {
	enc        *opus.Encoder
	sampleRate int
	frameSize  int
}

// NewEncoder 创建单声道Opus编码器
func NewEncoder(sampleRate int) (*Encoder, error) {
	enc, err := opus.NewEncoder(sampleRate, 1, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("创建Opus编码器失败: %w", err)
	}
	return &Encoder{
		enc:        enc,
		sampleRate: sampleRate,
		frameSize:  sampleRate * FrameDuration / 1000,
	}, nil
}

// AudioParams 返回推送给设备的音频参数
func (e *Encoder) AudioParams() model.CommandAudioParams {
	return model.CommandAudioParams{
		Format:        "opus",
		SampleRate:    e.sampleRate,
		Channels:      1,
		FrameDuration: FrameDuration,
	}
}

// Frames 将PCM按帧编码，最后不足一帧的部分补零
func (e *Encoder) Frames(pcm []int16) ([][]byte, error) {
	var frames [][]byte
	buf := make([]byte, 4000)
	frame := make([]int16, e.frameSize)
	for start := 0; start < len(pcm); start += e.frameSize {
		n := copy(frame, pcm[start:])
		clear(frame[n:])
		size, err := e.enc.Encode(frame, buf)
		if err != nil {
			return nil, fmt.Errorf("Opus编码失败: %w", err)
		}
		out := make([]byte, size)
		copy(out, buf[:size])
		frames = append(frames, out)
	}
	return frames, nil
}
