// Package alert 实现本地告警表：定长槽的编解码，以及基于blob存储的增删查。
//
// 每个槽的布局为：令牌（TokenChars字节）| 计划时间（8字节，小端）|
// 持续时间（4字节，小端）| 类型（1字节）。槽首字节为0表示空槽。
package alert

import (
	"encoding/binary"
	"fmt"

	"aia-port/model"
)

// DefaultTokenChars 是告警令牌的默认长度
const DefaultTokenChars = 16

const (
	scheduledTimeBytes = 8
	durationBytes      = 4
	typeBytes          = 1
	fieldBytes         = scheduledTimeBytes + durationBytes + typeBytes
)

// Codec 在告警和定长槽之间转换，没有状态
type Codec struct {
	tokenChars int
}

// NewCodec 创建令牌长度为tokenChars的编解码器
func NewCodec(tokenChars int) (Codec, error) {
	if tokenChars < 1 {
		return Codec{}, fmt.Errorf("%w: 令牌长度%d", ErrInvalidArgument, tokenChars)
	}
	return Codec{tokenChars: tokenChars}, nil
}

// TokenChars 返回令牌长度
func (c Codec) TokenChars() int {
	return c.tokenChars
}

// SlotSize 返回一个槽的字节数
func (c Codec) SlotSize() int {
	return c.tokenChars + fieldBytes
}

// checkToken 校验令牌长度
func (c Codec) checkToken(token string) error {
	if len(token) != c.tokenChars {
		return fmt.Errorf("%w: 令牌长度%d，应为%d", ErrInvalidArgument, len(token), c.tokenChars)
	}
	return nil
}

// Encode 将告警写入dst的前SlotSize个字节
// 参数:
//   - dst: 目标槽，长度至少为SlotSize
//   - a: 要编码的告警
//
// 返回:
//   - error: 令牌长度不对或dst太短时返回ErrInvalidArgument，dst不被修改
func (c Codec) Encode(dst []byte, a model.Alert) error {
	if err := c.checkToken(a.Token); err != nil {
		return err
	}
	if len(dst) < c.SlotSize() {
		return fmt.Errorf("%w: 槽长度%d，应至少为%d", ErrInvalidArgument, len(dst), c.SlotSize())
	}
	n := copy(dst, a.Token)
	binary.LittleEndian.PutUint64(dst[n:], a.ScheduledTime)
	n += scheduledTimeBytes
	binary.LittleEndian.PutUint32(dst[n:], a.Duration)
	n += durationBytes
	dst[n] = byte(a.Type)
	return nil
}

// Decode 从槽中读出告警。不校验告警类型，未知类型由播放方拒绝
func (c Codec) Decode(slot []byte) (model.Alert, error) {
	if len(slot) < c.SlotSize() {
		return model.Alert{}, fmt.Errorf("%w: 槽长度%d，应至少为%d", ErrInvalidArgument, len(slot), c.SlotSize())
	}
	n := c.tokenChars
	a := model.Alert{Token: string(slot[:n])}
	a.ScheduledTime = binary.LittleEndian.Uint64(slot[n:])
	n += scheduledTimeBytes
	a.Duration = binary.LittleEndian.Uint32(slot[n:])
	n += durationBytes
	a.Type = model.AlertType(slot[n])
	return a, nil
}

// isEmpty 判断槽是否为空槽
func isEmpty(slot []byte) bool {
	return slot[0] == 0
}

// matches 判断槽中的令牌是否与token逐字节相等
func (c Codec) matches(slot []byte, token string) bool {
	return string(slot[:c.tokenChars]) == token
}
