package websocket

import (
	"encoding/json"
	"sync"

	"aia-port/log"
	"aia-port/model"

	"github.com/gorilla/websocket"
)

// Hub 记录所有已认证的连接，把调度器触发的告警推送给它们
type Hub struct {
	mu    sync.Mutex
	conns map[*WebSocketConnection]struct{}
}

// NewHub 创建空的连接集合
func NewHub() *Hub {
	return &Hub{conns: map[*WebSocketConnection]struct{}{}}
}

// Register 添加连接
func (h *Hub) Register(c *WebSocketConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
}

// Unregister 移除连接
func (h *Hub) Unregister(c *WebSocketConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c)
}

// Len 返回当前连接数
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Play 推送告警开始消息和提示音帧
func (h *Hub) Play(a model.Alert, frames [][]byte) {
	alertCopy := a
	res, err := json.Marshal(&model.Command{
		Type:  model.CommandAlert,
		State: "start",
		Alert: &alertCopy,
	})
	if err != nil {
		log.Errorf("JSON编码错误: %v", err)
		return
	}

	for _, c := range h.snapshot() {
		c.trySend(websocket.TextMessage, res)
		for _, frame := range frames {
			c.trySend(websocket.BinaryMessage, frame)
		}
	}
}

// Stop 推送告警结束消息
func (h *Hub) Stop(a model.Alert) {
	res, err := json.Marshal(&model.Command{
		Type:  model.CommandAlert,
		State: "stop",
		Token: a.Token,
	})
	if err != nil {
		log.Errorf("JSON编码错误: %v", err)
		return
	}
	for _, c := range h.snapshot() {
		c.trySend(websocket.TextMessage, res)
	}
}

func (h *Hub) snapshot() []*WebSocketConnection {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := make([]*WebSocketConnection, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	return conns
}
