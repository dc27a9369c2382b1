package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"aia-port/alert"
	"aia-port/clock"
	"aia-port/config"
	"aia-port/demo"
	"aia-port/log"
	"aia-port/playback"
	"aia-port/server"
	"aia-port/storage"
	"aia-port/tone"
	ws "aia-port/websocket"
)

func main() {
	// 定义命令行参数，用于指定配置文件路径
	// 默认配置文件为当前目录下的config.yaml
	configPath := flag.String("config", "config.yaml", "配置文件路径")
	flag.Parse()

	// 加载配置文件
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("加载配置文件失败: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志系统
	if err := log.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志系统失败: %v\n", err)
		os.Exit(1)
	}

	log.Infof("正在启动aia-port...")
	log.Infof("已加载配置文件: %s", *configPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()
	if err != nil {
		// run返回时存储已经关闭
		log.Fatalf("%v", err)
	}
	log.Infof("aia-port已退出")
	_ = log.Close()
}

// run 打开存储并启动各个组件，阻塞直到ctx被取消或服务器出错。
// 返回前关闭存储。
func run(ctx context.Context, cfg *config.Config) error {
	// 演示用例在打开存储之前校验
	var cases []demo.Case
	if cfg.Demo.Enabled {
		var err error
		if cases, err = demo.ParseCases(cfg.Demo.Cases); err != nil {
			return fmt.Errorf("解析演示用例失败: %w", err)
		}
	}

	// 打开blob存储
	blobs, closer, err := storage.Open(cfg.Storage)
	if err != nil {
		return fmt.Errorf("打开存储失败: %w", err)
	}
	defer func() {
		if err := closer.Close(); err != nil {
			log.Errorf("关闭存储失败: %v", err)
		}
	}()

	store, err := alert.NewStore(blobs,
		alert.WithTokenChars(cfg.Alerts.TokenChars),
		alert.WithMaxAlerts(cfg.Alerts.MaxAlerts),
	)
	if err != nil {
		return fmt.Errorf("创建告警表失败: %w", err)
	}
	alerts := alert.NewSyncStore(store)
	if _, err := alerts.Alerts(); err != nil {
		return fmt.Errorf("读取告警表失败: %w", err)
	}
	log.Infof("告警表已就绪，当前%d字节", alerts.Size())

	// 同步时钟，失败时继续使用系统时间
	clk := clock.New()
	if err := server.SyncClock(ctx, cfg, clk); err != nil {
		log.Warnf("同步时钟失败，使用系统时间: %v", err)
	}

	hub := ws.NewHub()
	svc := &ws.Service{Store: alerts, Clock: clk, Hub: hub}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup

	// 启动告警调度
	if cfg.Playback.Enabled {
		opts := []playback.Option{playback.WithInterval(time.Duration(cfg.Playback.IntervalMs) * time.Millisecond)}
		enc, err := tone.NewEncoder(cfg.Playback.SampleRate)
		if err != nil {
			log.Warnf("提示音编码器不可用，只推送告警状态: %v", err)
		} else {
			opts = append(opts, playback.WithEncoder(enc, cfg.Playback.SampleRate))
			params := enc.AudioParams()
			svc.AudioParams = &params
		}
		scheduler := playback.New(alerts, clk, hub, opts...)
		wg.Add(1)
		go func() {
			defer wg.Done()
			scheduler.Run(ctx)
		}()
	}

	// 运行演示流程
	if cfg.Demo.Enabled {
		runner := demo.NewRunner(alerts, storage.NewPort(blobs), clk, cases, time.Duration(cfg.Demo.DelayMs)*time.Millisecond)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := runner.Run(ctx); err != nil {
				log.Errorf("演示流程失败: %v", err)
			}
		}()
	}

	// 启动WebSocket服务器，阻塞直到ctx被取消
	var serveErr error
	if cfg.WebSocket.Enabled {
		serveErr = server.StartWebSocketServer(ctx, cfg, svc)
	} else {
		<-ctx.Done()
	}

	cancel()
	wg.Wait()
	if serveErr != nil {
		return fmt.Errorf("WebSocket服务器错误: %w", serveErr)
	}
	return nil
}
