package model

import "fmt"

// AlertType 表示告警类型，持久化时占一个字节
type AlertType uint8

const (
	// AlertTypeTimer 计时器
	AlertTypeTimer AlertType = iota
	// AlertTypeAlarm 闹钟
	AlertTypeAlarm
	// AlertTypeReminder 提醒
	AlertTypeReminder
)

var alertTypeNames = map[AlertType]string{
	AlertTypeTimer:    "timer",
	AlertTypeAlarm:    "alarm",
	AlertTypeReminder: "reminder",
}

// Valid 判断告警类型是否为已知类型。存储层不做校验，播放时才拒绝未知类型
func (t AlertType) Valid() bool {
	_, ok := alertTypeNames[t]
	return ok
}

func (t AlertType) String() string {
	if name, ok := alertTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(t))
}

// ParseAlertType 将名称转换为告警类型
func ParseAlertType(name string) (AlertType, error) {
	for t, n := range alertTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("未知的告警类型: %s", name)
}

// Alert 表示一条本地持久化的告警
type Alert struct {
	Token         string    `json:"token"`          // 定长告警令牌，主键
	ScheduledTime uint64    `json:"scheduled_time"` // 触发时间，自NTP纪元（1900-01-01）起的秒数
	Duration      uint32    `json:"duration"`       // 持续时间（毫秒）
	Type          AlertType `json:"type"`           // 告警类型
}

// EndMs 返回告警有效期结束的时间点，单位为自NTP纪元起的毫秒数
func (a Alert) EndMs() uint64 {
	return a.ScheduledTime*1000 + uint64(a.Duration)
}
