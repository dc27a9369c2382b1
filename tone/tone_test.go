package tone

import (
	"testing"
	"time"

	"aia-port/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/hraban/opus.v2"
)

func TestPCMPattern(t *testing.T) {
	pcm, err := PCM(model.AlertTypeAlarm, 16000, time.Second)
	require.NoError(t, err)
	require.Len(t, pcm, 16000)

	// 闹钟前400毫秒响铃，之后静音
	assert.NotZero(t, maxAbs(pcm[:6400]))
	assert.Zero(t, maxAbs(pcm[6400:]))
	assert.LessOrEqual(t, maxAbs(pcm), int16(amplitude)+1)
}

func TestPCMTimerDoubleBeep(t *testing.T) {
	pcm, err := PCM(model.AlertTypeTimer, 8000, time.Second)
	require.NoError(t, err)
	assert.NotZero(t, maxAbs(pcm[0:800]))
	assert.Zero(t, maxAbs(pcm[800:1600]))
	assert.NotZero(t, maxAbs(pcm[1600:2400]))
	assert.Zero(t, maxAbs(pcm[2400:]))
}

func TestPCMInvalid(t *testing.T) {
	_, err := PCM(model.AlertType(9), 16000, time.Second)
	assert.Error(t, err)
	_, err = PCM(model.AlertTypeAlarm, 0, time.Second)
	assert.Error(t, err)
}

func TestEncoderFrames(t *testing.T) {
	enc, err := NewEncoder(16000)
	require.NoError(t, err)
	assert.Equal(t, 60, enc.AudioParams().FrameDuration)

	pcm, err := PCM(model.AlertTypeReminder, 16000, 200*time.Millisecond)
	require.NoError(t, err)
	frames, err := enc.Frames(pcm)
	require.NoError(t, err)
	// 200毫秒需要4个60毫秒帧
	require.Len(t, frames, 4)

	dec, err := opus.NewDecoder(16000, 1)
	require.NoError(t, err)
	out := make([]int16, 960)
	n, err := dec.Decode(frames[0], out)
	require.NoError(t, err)
	assert.Equal(t, 960, n)
}

func maxAbs(pcm []int16) int16 {
	var m int16
	for _, v := range pcm {
		if v < 0 {
			v = -v
		}
		if v > m {
			m = v
		}
	}
	return m
}
