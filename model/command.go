package model

// 控制通道的消息类型
const (
	CommandHello       = "hello"
	CommandStoreAlert  = "store_alert"
	CommandDeleteAlert = "delete_alert"
	CommandListAlerts  = "list_alerts"
	CommandSyncTime    = "sync_time"
	CommandAck         = "ack"
	CommandError       = "error"
	CommandAlerts      = "alerts"
	CommandAlert       = "alert"
)

// CommandAudioParams 描述推送给设备的提示音参数
type CommandAudioParams struct {
	Format        string `json:"format,omitempty"`
	SampleRate    int    `json:"sample_rate,omitempty"`
	Channels      int    `json:"channels,omitempty"`
	FrameDuration int    `json:"frame_duration,omitempty"`
}

// Command 是控制通道上收发的JSON消息
type Command struct {
	Type    string `json:"type"`
	Session string `json:"session,omitempty"`

	Transport   string              `json:"transport,omitempty"`
	AudioParams *CommandAudioParams `json:"audio_params,omitempty"`

	// 告警相关
	Alert      *Alert  `json:"alert,omitempty"`
	Alerts     []Alert `json:"alerts,omitempty"`
	Token      string  `json:"token,omitempty"`
	TokenChars int     `json:"token_chars,omitempty"`

	// 时间同步，自NTP纪元起的秒数
	Time uint64 `json:"time,omitempty"`

	State  string `json:"state,omitempty"`
	Reason string `json:"reason,omitempty"`
}
