package config

import (
	"fmt"
	"os"

	"aia-port/log"

	"gopkg.in/yaml.v3"
)

// Config 表示端口程序的完整配置
type Config struct {
	Log        log.LogConfig   `yaml:"log"`       // 日志配置
	Storage    StorageConfig   `yaml:"storage"`   // 持久化存储配置
	Alerts     AlertsConfig    `yaml:"alerts"`    // 告警表配置
	Clock      ClockConfig     `yaml:"clock"`     // 时钟同步配置
	WebSocket  WebSocketConfig `yaml:"websocket"` // 控制通道配置
	Playback   PlaybackConfig  `yaml:"playback"`  // 告警播放配置
	Demo       DemoConfig      `yaml:"demo"`      // 演示流程配置
	ConfigPath string          `yaml:"-"`         // 配置文件路径，不存储在YAML中
}

// StorageConfig 表示blob存储后端的配置
type StorageConfig struct {
	Backend    string         `yaml:"backend"`    // memory、file、bolt、sqlite或afs
	Dir        string         `yaml:"dir"`        // file后端的目录
	Path       string         `yaml:"path"`       // bolt、sqlite后端的数据库文件
	URL        string         `yaml:"url"`        // afs后端的基础URL，如file:///var/aia或mem://localhost/aia
	Capacities map[string]int `yaml:"capacities"` // memory后端每个键的容量（字节）
}

// AlertsConfig 表示告警表的配置
type AlertsConfig struct {
	TokenChars int `yaml:"token_chars"` // 告警令牌的固定长度
	MaxAlerts  int `yaml:"max_alerts"`  // 最多保存的告警数量，0表示由存储容量决定
}

// ClockConfig 表示时钟同步的配置
type ClockConfig struct {
	TimeSource string `yaml:"time_source"` // 时间源HTTP地址，为空时不同步
	Timeout    int    `yaml:"timeout"`     // 等待时间源就绪的秒数
}

// WebSocketConfig 表示控制通道服务器的配置
type WebSocketConfig struct {
	Enabled bool   `yaml:"enabled"` // 是否启动控制通道
	Host    string `yaml:"host"`    // 服务器主机地址，如"0.0.0.0"表示所有网络接口
	Port    int    `yaml:"port"`    // 服务器端口
	Auth    struct {
		Enabled bool `yaml:"enabled"` // 是否启用认证
		Tokens  []struct {
			Token string `yaml:"token"` // 认证令牌
			Name  string `yaml:"name"`  // 设备名称
		} `yaml:"tokens"` // 有效的认证令牌列表
	} `yaml:"auth"` // 认证配置

	CommandsPerSecond float64 `yaml:"commands_per_second"` // 每个连接每秒允许的命令数
	CommandBurst      int     `yaml:"command_burst"`       // 命令突发上限
}

// PlaybackConfig 表示告警播放的配置
type PlaybackConfig struct {
	Enabled    bool `yaml:"enabled"`     // 是否启动告警调度
	IntervalMs int  `yaml:"interval_ms"` // 扫描告警表的间隔（毫秒）
	SampleRate int  `yaml:"sample_rate"` // 提示音采样率
}

// DemoConfig 表示演示流程的配置
type DemoConfig struct {
	Enabled bool     `yaml:"enabled"`  // 是否运行演示流程
	Cases   []string `yaml:"cases"`    // 演示用例，为空时运行全部
	DelayMs int      `yaml:"delay_ms"` // 用例之间的间隔（毫秒）
}

// LoadConfig 从YAML文件加载配置
// 参数:
//   - configPath: 配置文件路径
//
// 返回:
//   - *Config: 加载的配置对象
//   - error: 如果加载失败，返回错误信息
func LoadConfig(configPath string) (*Config, error) {
	// 读取配置文件内容
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// 存储配置文件路径
	cfg.ConfigPath = configPath
	return cfg, nil
}

// Parse 解析YAML内容，填充默认值并校验
func Parse(data []byte) (*Config, error) {
	// 解析YAML内容到Config结构体
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults 为未指定的配置项设置默认值
func (cfg *Config) setDefaults() {
	if cfg.Log.LogLevel == "" {
		cfg.Log.LogLevel = "info" // 默认日志级别为info
	}
	if cfg.Log.LogFile == "" {
		cfg.Log.EnableConsole = true // 没有日志文件时必须输出到控制台
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "memory"
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = "data/blobs"
	}

	if cfg.Alerts.TokenChars == 0 {
		cfg.Alerts.TokenChars = 16
	}

	if cfg.Clock.Timeout == 0 {
		cfg.Clock.Timeout = 30
	}

	if cfg.WebSocket.Host == "" {
		cfg.WebSocket.Host = "0.0.0.0"
	}
	if cfg.WebSocket.Port == 0 {
		cfg.WebSocket.Port = 8000
	}
	if cfg.WebSocket.CommandsPerSecond == 0 {
		cfg.WebSocket.CommandsPerSecond = 20
	}
	if cfg.WebSocket.CommandBurst == 0 {
		cfg.WebSocket.CommandBurst = 40
	}

	if cfg.Playback.IntervalMs == 0 {
		cfg.Playback.IntervalMs = 500
	}
	if cfg.Playback.SampleRate == 0 {
		cfg.Playback.SampleRate = 16000
	}

	if cfg.Demo.DelayMs == 0 {
		cfg.Demo.DelayMs = 200
	}
}

// Validate 校验配置的合法性
func (cfg *Config) Validate() error {
	switch cfg.Storage.Backend {
	case "memory", "file":
	case "bolt", "sqlite":
		if cfg.Storage.Path == "" {
			return fmt.Errorf("存储后端%s需要配置path", cfg.Storage.Backend)
		}
	case "afs":
		if cfg.Storage.URL == "" {
			return fmt.Errorf("存储后端afs需要配置url")
		}
	default:
		return fmt.Errorf("未知的存储后端: %s", cfg.Storage.Backend)
	}

	if cfg.Alerts.TokenChars < 1 {
		return fmt.Errorf("告警令牌长度无效: %d", cfg.Alerts.TokenChars)
	}
	if cfg.Alerts.MaxAlerts < 0 {
		return fmt.Errorf("告警数量上限无效: %d", cfg.Alerts.MaxAlerts)
	}
	if cfg.WebSocket.Port < 0 || cfg.WebSocket.Port > 65535 {
		return fmt.Errorf("控制通道端口无效: %d", cfg.WebSocket.Port)
	}
	return nil
}
