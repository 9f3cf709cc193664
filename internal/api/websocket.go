// internal/api/websocket.go
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocket 升级器配置
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 在生产环境中应该进行更严格的检查
		return true
	},
}

const (
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

// wsClient 表示一个订阅了某情景的 WebSocket 客户端连接
type wsClient struct {
	conn    *websocket.Conn
	sceneID string
	send    chan []byte
}

// WebSocketHub 管理按情景分组的 WebSocket 连接
// 情景下新增对话时向该情景的全部订阅者广播
type WebSocketHub struct {
	mutex   sync.RWMutex
	clients map[string]map[*wsClient]bool // sceneID -> clients
	logger  *zap.Logger
}

// NewWebSocketHub 创建 WebSocket 管理器
func NewWebSocketHub(logger *zap.Logger) *WebSocketHub {
	return &WebSocketHub{
		clients: make(map[string]map[*wsClient]bool),
		logger:  logger,
	}
}

// SceneWebSocket 处理情景 WebSocket 连接
func (h *WebSocketHub) SceneWebSocket(c *gin.Context) {
	sceneID := c.Param("id")
	if sceneID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少情景ID"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket 升级失败", zap.Error(err))
		return
	}

	client := &wsClient{
		conn:    conn,
		sceneID: sceneID,
		send:    make(chan []byte, 64),
	}
	h.register(client)

	go h.writeLoop(client)
	go h.readLoop(client)
}

// BroadcastToScene 向情景的全部订阅者广播一条消息
func (h *WebSocketHub) BroadcastToScene(sceneID string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("websocket 消息序列化失败", zap.Error(err))
		return
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for client := range h.clients[sceneID] {
		select {
		case client.send <- data:
		default:
			// 发送缓冲已满的客户端视为掉线，跳过
		}
	}
}

// ClientCount 返回情景当前的连接数（调试用）
func (h *WebSocketHub) ClientCount(sceneID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients[sceneID])
}

func (h *WebSocketHub) register(client *wsClient) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.clients[client.sceneID] == nil {
		h.clients[client.sceneID] = make(map[*wsClient]bool)
	}
	h.clients[client.sceneID][client] = true
}

func (h *WebSocketHub) unregister(client *wsClient) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if clients, ok := h.clients[client.sceneID]; ok {
		if clients[client] {
			delete(clients, client)
			close(client.send)
			if len(clients) == 0 {
				delete(h.clients, client.sceneID)
			}
		}
	}
	client.conn.Close()
}

// readLoop 只消费控制帧和关闭事件，情景通道是单向推送
func (h *WebSocketHub) readLoop(client *wsClient) {
	defer h.unregister(client)

	client.conn.SetReadLimit(512)
	client.conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WebSocketHub) writeLoop(client *wsClient) {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case data, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
