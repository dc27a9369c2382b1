// Package clock 提供以NTP纪元（1900-01-01 UTC）为基准的设备时钟，可由服务器同步。
package clock

import (
	"sync"
	"time"

	"aia-port/log"
)

// UnixNTPDeltaSeconds 是NTP纪元与Unix纪元之间的秒数（RFC 868）
const UnixNTPDeltaSeconds = 2208988800

// ToTime 将自NTP纪元起的秒数转换为time.Time
func ToTime(ntpSeconds uint64) time.Time {
	return time.Unix(int64(ntpSeconds)-UnixNTPDeltaSeconds, 0).UTC()
}

// FromTime 将time.Time转换为自NTP纪元起的秒数
func FromTime(t time.Time) uint64 {
	return uint64(t.Unix() + UnixNTPDeltaSeconds)
}

// Clock 是可同步的NTP时钟。
//
// 同步之前直接使用系统时间；同步之后使用最近一次同步的时间
// 加上单调时钟流逝的时间，不受系统时间跳变影响。
type Clock struct {
	mu       sync.Mutex
	now      func() time.Time
	synced   bool
	lastNTP  uint64    // 最近一次同步得到的时间
	lastSync time.Time // 最近一次同步时的本地时间，带单调时钟读数
}

// New 创建使用系统时间的时钟
func New() *Clock {
	return NewWithSource(time.Now)
}

// NewWithSource 创建使用指定时间源的时钟，用于测试
func NewWithSource(now func() time.Time) *Clock {
	return &Clock{now: now}
}

// Now 返回当前自NTP纪元起的秒数
func (c *Clock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if !c.synced {
		return FromTime(now)
	}
	return c.lastNTP + uint64(now.Sub(c.lastSync)/time.Second)
}

// NowMs 返回当前自NTP纪元起的毫秒数
func (c *Clock) NowMs() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if !c.synced {
		return FromTime(now)*1000 + uint64(now.Nanosecond()/int(time.Millisecond))
	}
	return c.lastNTP*1000 + uint64(now.Sub(c.lastSync)/time.Millisecond)
}

// Set 用服务器下发的时间同步时钟
func (c *Clock) Set(ntpSeconds uint64) {
	log.Infof("UTC时间 = %s", ToTime(ntpSeconds).Format(time.RFC1123))

	c.mu.Lock()
	defer c.mu.Unlock()
	c.synced = true
	c.lastNTP = ntpSeconds
	c.lastSync = c.now()
}

// Synchronized 判断时钟是否已与服务器同步
func (c *Clock) Synchronized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.synced
}
