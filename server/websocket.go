package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"aia-port/config"
	"aia-port/handle"
	"aia-port/log"
	"aia-port/utils"
	ws "aia-port/websocket"
)

// NewHandler 返回控制通道的HTTP处理器，根路径的请求都升级为WebSocket
func NewHandler(cfg *config.Config, svc *ws.Service) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		handle.HandleWebSocket(w, r, cfg, svc)
	})
	return mux
}

// StartWebSocketServer 启动WebSocket服务器
// 参数:
//   - ctx: 取消时关闭服务器
//   - cfg: 服务器配置信息，包含WebSocket服务器的主机地址、端口和认证信息等
//   - svc: 告警表、时钟和推送集合
//
// 返回:
//   - error: 如果服务器启动失败，返回错误信息
func StartWebSocketServer(ctx context.Context, cfg *config.Config, svc *ws.Service) error {
	// 获取本机IP地址，用于日志显示
	localIP := utils.GetLocalIP()

	addr := fmt.Sprintf("%s:%d", cfg.WebSocket.Host, cfg.WebSocket.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewHandler(cfg, svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnf("关闭WebSocket服务器失败: %v", err)
		}
	}()

	log.Infof("正在启动WebSocket服务器，监听地址: %s (本机IP: %s)", addr, localIP)
	// 阻塞直到服务器关闭
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
