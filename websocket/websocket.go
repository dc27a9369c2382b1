package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"aia-port/alert"
	"aia-port/clock"
	"aia-port/config"
	"aia-port/log"
	"aia-port/model"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// ResponseMessage 表示要发送的响应消息
type ResponseMessage struct {
	MessageType int    // WebSocket消息类型
	Data        []byte // 消息数据
}

// Service 是控制通道操作的本地状态
type Service struct {
	Store       *alert.SyncStore          // 告警表
	Clock       *clock.Clock              // 时钟
	Hub         *Hub                      // 告警推送
	AudioParams *model.CommandAudioParams // 提示音参数，未启用播放时为空
}

// WebSocketConnection 表示一个WebSocket连接
type WebSocketConnection struct {
	conn         *websocket.Conn      // WebSocket连接对象
	config       *config.Config       // 服务器配置
	service      *Service             // 告警表、时钟等
	responseChan chan ResponseMessage // 响应消息通道
	limiter      *rate.Limiter        // 命令限流
	ctx          context.Context      // 上下文，用于控制goroutine生命周期
	cancelFunc   context.CancelFunc   // 取消函数，用于关闭上下文

	sessionId string
	deviceId  string
	clientIP  string
}

// NewWebSocketConnection 创建一个新的WebSocket连接处理器
// 参数:
//   - conn: WebSocket连接对象
//   - r: HTTP请求
//   - cfg: 服务器配置
//   - svc: 告警表、时钟和推送集合
//
// 返回:
//   - *WebSocketConnection: 新创建的WebSocket连接处理器
func NewWebSocketConnection(conn *websocket.Conn, r *http.Request, cfg *config.Config, svc *Service) *WebSocketConnection {
	// 连接被劫持后请求的上下文会随ServeHTTP返回而取消，不能作为父上下文
	ctx, cancel := context.WithCancel(context.Background())

	wsConn := &WebSocketConnection{
		conn:         conn,
		config:       cfg,
		service:      svc,
		responseChan: make(chan ResponseMessage, 64),
		limiter:      rate.NewLimiter(rate.Limit(cfg.WebSocket.CommandsPerSecond), cfg.WebSocket.CommandBurst),
		ctx:          ctx,
		cancelFunc:   cancel,
		sessionId:    uuid.NewString(),
		deviceId:     r.Header.Get("device-id"),
		clientIP:     r.RemoteAddr,
	}

	log.Debugf("新连接: session(%s) device(%s) ip(%s)", wsConn.sessionId, wsConn.deviceId, wsConn.clientIP)

	// 启动响应处理协程
	go wsConn.handleResponses()

	return wsConn
}

// handleResponses 回复响应消息的协程
// 从responseChan通道读取消息并发送到WebSocket连接
func (wsc *WebSocketConnection) handleResponses() {
	defer log.Debugf("响应处理协程已退出")

	for {
		select {
		case <-wsc.ctx.Done():
			return
		case response := <-wsc.responseChan:
			// 发送消息到WebSocket连接
			if err := wsc.conn.WriteMessage(response.MessageType, response.Data); err != nil {
				log.Errorf("写入消息错误: %v", err)
				// 发生错误时取消上下文，触发连接关闭
				wsc.cancelFunc()
				return
			}
		}
	}
}

// sendResponse 发送响应消息
// 参数:
//   - messageType: WebSocket消息类型
//   - data: 消息数据
func (wsc *WebSocketConnection) sendResponse(messageType int, data []byte) {
	select {
	case <-wsc.ctx.Done():
		// 上下文已取消，不发送消息
	case wsc.responseChan <- ResponseMessage{MessageType: messageType, Data: data}:
	}
}

// trySend 推送消息，通道已满时丢弃，不阻塞调度器
func (wsc *WebSocketConnection) trySend(messageType int, data []byte) {
	select {
	case <-wsc.ctx.Done():
	case wsc.responseChan <- ResponseMessage{MessageType: messageType, Data: data}:
	default:
		log.Warnf("session(%s) 响应通道已满，丢弃推送", wsc.sessionId)
	}
}

// sendCommand 编码并发送一条JSON命令
func (wsc *WebSocketConnection) sendCommand(cmd *model.Command) error {
	cmd.Session = wsc.sessionId
	res, err := json.Marshal(cmd)
	if err != nil {
		log.Errorf("JSON编码错误: %v", err)
		return err
	}
	wsc.sendResponse(websocket.TextMessage, res)
	return nil
}

// reply 根据操作结果回复ack或error
func (wsc *WebSocketConnection) reply(token string, err error) error {
	if err != nil {
		log.Warnf("session(%s) 操作失败: %v", wsc.sessionId, err)
		return wsc.sendCommand(&model.Command{Type: model.CommandError, Token: token, Reason: err.Error()})
	}
	return wsc.sendCommand(&model.Command{Type: model.CommandAck, Token: token})
}

// handleTextMessage 处理JSON命令
func (wsc *WebSocketConnection) handleTextMessage(data []byte) error {
	var cmd model.Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		_ = wsc.sendCommand(&model.Command{Type: model.CommandError, Reason: "无效的JSON"})
		return err
	}

	if !wsc.limiter.Allow() {
		return wsc.sendCommand(&model.Command{Type: model.CommandError, Reason: "命令过于频繁"})
	}

	svc := wsc.service
	switch cmd.Type {
	case model.CommandHello:
		return wsc.sendCommand(&model.Command{
			Type:        model.CommandHello,
			Transport:   "websocket",
			AudioParams: svc.AudioParams,
			TokenChars:  svc.Store.TokenChars(),
			Time:        svc.Clock.Now(),
		})
	case model.CommandStoreAlert:
		if cmd.Alert == nil {
			return wsc.reply("", errors.New("缺少alert字段"))
		}
		a := cmd.Alert
		err := svc.Store.StoreAlert(a.Token, a.ScheduledTime, a.Duration, a.Type)
		if err == nil {
			log.Infof("已保存告警: token(%s) type(%s) time(%d)", a.Token, a.Type, a.ScheduledTime)
		}
		return wsc.reply(a.Token, err)
	case model.CommandDeleteAlert:
		err := svc.Store.DeleteAlert(cmd.Token)
		if err == nil {
			log.Infof("已删除告警: token(%s)", cmd.Token)
		}
		return wsc.reply(cmd.Token, err)
	case model.CommandListAlerts:
		alerts, err := svc.Store.Alerts()
		if err != nil {
			return wsc.reply("", err)
		}
		return wsc.sendCommand(&model.Command{Type: model.CommandAlerts, Alerts: alerts})
	case model.CommandSyncTime:
		if cmd.Time == 0 {
			return wsc.reply("", errors.New("缺少time字段"))
		}
		svc.Clock.Set(cmd.Time)
		return wsc.reply("", nil)
	default:
		_ = wsc.sendCommand(&model.Command{Type: model.CommandError, Reason: "未知消息类型: " + cmd.Type})
		return fmt.Errorf("未知消息类型:%s", cmd.Type)
	}
}

// processMessage 根据消息类型处理WebSocket消息
func (wsc *WebSocketConnection) processMessage(messageType int, data []byte) error {
	switch messageType {
	case websocket.TextMessage:
		log.Debugf("处理文本消息: %s", string(data))
		return wsc.handleTextMessage(data)
	case websocket.BinaryMessage:
		// 设备不上传音频
		return fmt.Errorf("不支持二进制消息，大小: %d字节", len(data))
	default:
		return fmt.Errorf("未知的消息类型: %d", messageType)
	}
}

// authenticate 读取第一条消息作为认证令牌
func (wsc *WebSocketConnection) authenticate() bool {
	_, msg, err := wsc.conn.ReadMessage()
	if err != nil {
		log.Errorf("读取认证消息失败: %v", err)
		return false
	}

	token := string(msg)
	for _, validToken := range wsc.config.WebSocket.Auth.Tokens {
		if validToken.Token == token {
			log.Infof("设备已认证: %s", validToken.Name)
			return true
		}
	}
	log.Warnf("连接认证失败: %s", wsc.clientIP)
	return false
}

// HandleConnection 处理WebSocket连接的主循环
// 负责认证、接收消息、处理消息和发送响应
func (wsc *WebSocketConnection) HandleConnection() {
	defer func() {
		if wsc.service.Hub != nil {
			wsc.service.Hub.Unregister(wsc)
		}
		// 取消上下文，通知所有协程退出
		wsc.cancelFunc()
		wsc.conn.Close()
		log.Infof("WebSocket连接已关闭: session(%s)", wsc.sessionId)
	}()

	if wsc.config.WebSocket.Auth.Enabled && !wsc.authenticate() {
		return
	}

	if wsc.service.Hub != nil {
		wsc.service.Hub.Register(wsc)
	}
	log.Debugf("WebSocket连接已建立")

	// 读取结束时关闭连接，解除ReadMessage的阻塞
	go func() {
		<-wsc.ctx.Done()
		wsc.conn.Close()
	}()

	for {
		messageType, message, err := wsc.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debugf("客户端关闭连接")
			} else if wsc.ctx.Err() == nil {
				log.Errorf("读取消息错误: %v", err)
			}
			return
		}

		if err := wsc.processMessage(messageType, message); err != nil {
			log.Errorf("处理消息错误: %v", err)
		}
	}
}
