package websocket

import (
	"encoding/json"
	"sync"

	"github.com/pandora-hackathon/jejak-air/internal/model"
)

// TimelineEvent 推送给订阅方的时间线事件
type TimelineEvent struct {
	BatchCode string          `json:"batch_code"`
	Kind      string          `json:"kind"`
	Activity  *model.Activity `json:"activity"`
}

// Hub 管理所有 WebSocket 连接,向订阅的看板客户端
// 推送新追加的溯源活动
type Hub struct {
	// 已注册的客户端
	clients map[*Client]bool

	// 广播消息到所有客户端
	Broadcast chan []byte

	// 注册新客户端
	Register chan *Client

	// 注销客户端
	Unregister chan *Client

	// 互斥锁,保护 clients map
	mu sync.RWMutex
}

// NewHub 创建新的 Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		Broadcast:  make(chan []byte),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Run 运行 Hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()

		case message := <-h.Broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// PublishActivity 把新活动序列化后广播给所有客户端。
// 序列化失败或无人订阅时静默丢弃,不影响主流程
func (h *Hub) PublishActivity(activity *model.Activity) {
	if activity == nil {
		return
	}

	event := TimelineEvent{
		BatchCode: activity.BatchCode,
		Kind:      activity.Kind,
		Activity:  activity,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	empty := len(h.clients) == 0
	h.mu.RUnlock()
	if empty {
		return
	}

	select {
	case h.Broadcast <- payload:
	default:
	}
}

// GetClientCount 获取客户端数量
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
