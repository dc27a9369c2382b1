package handle

import (
	"net/http"

	"aia-port/config"
	"aia-port/log"
	ws "aia-port/websocket"

	"github.com/gorilla/websocket"
)

// upgrader 用于将HTTP连接升级为WebSocket连接
var upgrader = websocket.Upgrader{
	// 设备端控制通道不限制来源
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket 将HTTP连接升级为WebSocket并创建新的WebSocketConnection
// 参数:
//   - w: HTTP响应写入器
//   - r: HTTP请求
//   - cfg: 服务器配置
//   - svc: 告警表、时钟和推送集合
func HandleWebSocket(w http.ResponseWriter, r *http.Request, cfg *config.Config, svc *ws.Service) {
	// 将HTTP连接升级为WebSocket
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("升级连接失败: %v", err)
		return
	}

	log.Infof("新的WebSocket连接来自 %s", r.RemoteAddr)

	wsConn := ws.NewWebSocketConnection(conn, r, cfg, svc)

	// 在新的goroutine中处理连接
	go wsConn.HandleConnection()
}
