package log

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// LogConfig 包含日志系统的配置信息
type LogConfig struct {
	// LogLevel 是最低输出的日志级别
	LogLevel string `yaml:"log_level"`
	// LogFile 是日志文件的路径，为空时不写文件
	LogFile string `yaml:"log_file"`
	// EnableConsole 决定是否同时将日志输出到控制台
	EnableConsole bool `yaml:"enable_console"`
	// EnableJSON 决定日志文件是否使用JSON格式
	EnableJSON bool `yaml:"enable_json"`
}

// 日志级别名称映射表，用于将字符串日志级别转换为slog级别
var levelNames = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
	"fatal": LevelFatal,
}

// LevelFatal 是Fatalf使用的级别，输出时显示为FATAL
const LevelFatal = slog.LevelError + 4

// replaceLevel 把致命级别显示为FATAL，而不是slog默认的ERROR+4
func replaceLevel(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.LevelKey {
		if level, ok := a.Value.Any().(slog.Level); ok && level >= LevelFatal {
			a.Value = slog.StringValue("FATAL")
		}
	}
	return a
}

// 未初始化时输出到标准错误，保证包在Init之前也可用
var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo, ReplaceAttr: replaceLevel}))

// logFile 是当前打开的日志文件，重新初始化时关闭
var logFile *os.File

// ParseLevel 将字符串日志级别转换为slog级别，无效值返回info
func ParseLevel(name string) slog.Level {
	level, ok := levelNames[name]
	if !ok {
		return slog.LevelInfo
	}
	return level
}

// Init 根据给定的配置初始化日志系统
// 参数：
//   - config：日志配置信息，包含日志级别、文件路径等
//
// 返回：
//   - error：如果初始化失败，返回错误信息
func Init(config *LogConfig) error {
	level := ParseLevel(config.LogLevel)

	var handlers []slog.Handler

	// 控制台使用tint彩色输出，非终端时自动关闭颜色
	if config.EnableConsole {
		handlers = append(handlers, tint.NewHandler(colorable.NewColorable(os.Stdout), &tint.Options{
			Level:       level,
			AddSource:   true,
			TimeFormat:  "2006-01-02 15:04:05.000",
			NoColor:     !isatty.IsTerminal(os.Stdout.Fd()),
			ReplaceAttr: replaceLevel,
		}))
	}

	// 如果配置了日志文件，添加文件输出
	if config.LogFile != "" {
		// 创建日志目录（如果不存在）
		if err := os.MkdirAll(filepath.Dir(config.LogFile), 0o755); err != nil {
			return fmt.Errorf("创建日志目录失败：%w", err)
		}

		// 打开日志文件，如果不存在则创建，以追加模式写入
		file, err := os.OpenFile(config.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return fmt.Errorf("打开日志文件失败：%w", err)
		}
		if logFile != nil {
			_ = logFile.Close()
		}
		logFile = file

		opts := &slog.HandlerOptions{Level: level, AddSource: true, ReplaceAttr: replaceLevel}
		if config.EnableJSON {
			handlers = append(handlers, slog.NewJSONHandler(file, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(file, opts))
		}
	}

	switch len(handlers) {
	case 0:
		// 既没有文件也没有控制台，丢弃所有日志
		logger = slog.New(slog.DiscardHandler)
	case 1:
		logger = slog.New(handlers[0])
	default:
		logger = slog.New(fanout(handlers))
	}

	Infof("日志系统已初始化，级别：%s", level)
	return nil
}

// Logger 返回当前的结构化日志记录器
func Logger() *slog.Logger {
	return logger
}

// SetLogger 替换全局日志记录器，主要用于测试
func SetLogger(l *slog.Logger) {
	logger = l
}

// Close 关闭日志文件
func Close() error {
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// logf 构造日志记录，跳过包装函数的调用栈以保留调用者的文件和行号
func logf(level slog.Level, format string, args ...interface{}) {
	ctx := context.Background()
	if !logger.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	// 跳过runtime.Callers、logf和Debugf等包装函数
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, fmt.Sprintf(format, args...), pcs[0])
	_ = logger.Handler().Handle(ctx, r)
}

// Debugf 以调试级别记录格式化的消息
func Debugf(format string, args ...interface{}) {
	logf(slog.LevelDebug, format, args...)
}

// Infof 以信息级别记录格式化的消息
func Infof(format string, args ...interface{}) {
	logf(slog.LevelInfo, format, args...)
}

// Warnf 以警告级别记录格式化的消息
func Warnf(format string, args ...interface{}) {
	logf(slog.LevelWarn, format, args...)
}

// Errorf 以错误级别记录格式化的消息
func Errorf(format string, args ...interface{}) {
	logf(slog.LevelError, format, args...)
}

// Fatalf 以致命错误级别记录格式化的消息，然后退出程序
func Fatalf(format string, args ...interface{}) {
	logf(LevelFatal, format, args...)
	_ = Close()
	os.Exit(1)
}

// fanout 将一条日志记录分发给多个处理器
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
