// internal/transport/websocket.go
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	apperrors "github.com/flirlabs/flirbot/internal/errors"
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

// Client 表示一个 WebSocket 客户端连接
type Client struct {
	conn      *websocket.Conn
	channel   string
	send      chan []byte
	closed    int32     // 原子操作标志，0=开启，1=关闭
	lastPing  time.Time // 最后一次ping时间
	createdAt time.Time
}

// Close 安全关闭客户端连接
func (c *Client) Close() {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		// 只设置关闭标志并断开连接，发送通道不关闭
		if c.conn != nil {
			c.conn.Close()
		}
	}
}

// IsClosed 检查连接是否已关闭
func (c *Client) IsClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

// UpdatePing 更新最后ping时间
func (c *Client) UpdatePing() {
	c.lastPing = time.Now()
}

// IsExpired 检查连接是否超时
func (c *Client) IsExpired(timeout time.Duration) bool {
	if timeout <= 0 {
		return true
	}
	return time.Since(c.lastPing) > timeout
}

// WebSocketHub 管理所有会话通道的 WebSocket 连接
type WebSocketHub struct {
	connections   map[string]map[*websocket.Conn]*Client // channel -> connections
	register      chan *Client
	unregister    chan *Client
	shutdownCh    chan bool
	mutex         sync.RWMutex
	pingTimeout   time.Duration
	cleanupTicker *time.Ticker
}

// NewWebSocketHub 创建并启动连接管理器
func NewWebSocketHub() *WebSocketHub {
	hub := &WebSocketHub{
		connections: make(map[string]map[*websocket.Conn]*Client),
		register:    make(chan *Client, 256),
		unregister:  make(chan *Client, 256),
		shutdownCh:  make(chan bool, 1),
		pingTimeout: 60 * time.Second,
	}
	go hub.run()
	return hub
}

// run 运行管理器主循环
func (hub *WebSocketHub) run() {
	hub.cleanupTicker = time.NewTicker(30 * time.Second)
	defer hub.cleanupTicker.Stop()

	for {
		select {
		case client := <-hub.register:
			hub.registerClient(client)

		case client := <-hub.unregister:
			hub.unregisterClient(client)

		case <-hub.cleanupTicker.C:
			hub.cleanupExpiredConnections()

		case <-hub.shutdownCh:
			hub.shutdown()
			return
		}
	}
}

// registerClient 注册新客户端
func (hub *WebSocketHub) registerClient(client *Client) {
	if client == nil {
		return
	}

	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	if hub.connections[client.channel] == nil {
		hub.connections[client.channel] = make(map[*websocket.Conn]*Client)
	}

	hub.connections[client.channel][client.conn] = client
	client.UpdatePing()

	log.Printf("✅ WebSocket 客户端已连接到通道 %s", client.channel)
}

// unregisterClient 安全注销客户端
func (hub *WebSocketHub) unregisterClient(client *Client) {
	if client == nil {
		return
	}

	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	if connections, exists := hub.connections[client.channel]; exists {
		delete(connections, client.conn)
		if len(connections) == 0 {
			delete(hub.connections, client.channel)
		}
	}

	if !client.IsClosed() {
		client.Close()
	}

	log.Printf("🔌 WebSocket 客户端已断开连接 (通道: %s)", client.channel)
}

// cleanupExpiredConnections 清理过期和死连接
func (hub *WebSocketHub) cleanupExpiredConnections() {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	for channel, connections := range hub.connections {
		for conn, client := range connections {
			if client.IsClosed() || client.IsExpired(hub.pingTimeout) {
				delete(connections, conn)
				if !client.IsClosed() {
					client.Close()
				}
			}
		}
		if len(connections) == 0 {
			delete(hub.connections, channel)
		}
	}
}

// shutdown 优雅关闭管理器
func (hub *WebSocketHub) shutdown() {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	log.Println("🛑 正在关闭 WebSocket 管理器...")

	for _, connections := range hub.connections {
		for _, client := range connections {
			client.Close()
		}
	}
	hub.connections = make(map[string]map[*websocket.Conn]*Client)

	log.Println("✅ WebSocket 管理器已关闭")
}

// Shutdown 请求关闭管理器
func (hub *WebSocketHub) Shutdown() {
	select {
	case hub.shutdownCh <- true:
	default:
	}
}

// Send 向通道的所有活跃连接投递消息，无活跃连接视为投递失败
func (hub *WebSocketHub) Send(ctx context.Context, channel string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewDeliveryError("投递已取消", err)
	}

	msgBytes, err := json.Marshal(msg)
	if err != nil {
		return apperrors.NewSerializationError("序列化推送消息失败", err)
	}

	hub.mutex.RLock()
	connections := hub.connections[channel]
	clients := make([]*Client, 0, len(connections))
	for _, client := range connections {
		if !client.IsClosed() {
			clients = append(clients, client)
		}
	}
	hub.mutex.RUnlock()

	if len(clients) == 0 {
		return apperrors.NewDeliveryError(fmt.Sprintf("通道无活跃连接: %s", channel), nil)
	}

	delivered := 0
	for _, client := range clients {
		select {
		case client.send <- msgBytes:
			delivered++
		default:
			// 队列满视为连接不健康
			log.Printf("⚠️ 通道 %s 的客户端消息队列已满，消息被丢弃", channel)
		}
	}

	if delivered == 0 {
		return apperrors.NewDeliveryError(fmt.Sprintf("通道所有连接均不可写: %s", channel), nil)
	}
	return nil
}

// HasSubscribers 检查通道是否有活跃连接
func (hub *WebSocketHub) HasSubscribers(channel string) bool {
	hub.mutex.RLock()
	defer hub.mutex.RUnlock()

	for _, client := range hub.connections[channel] {
		if !client.IsClosed() {
			return true
		}
	}
	return false
}

// Status 获取管理器状态
func (hub *WebSocketHub) Status() map[string]interface{} {
	hub.mutex.RLock()
	defer hub.mutex.RUnlock()

	channels := make(map[string]interface{})
	totalConnections := 0

	for channel, connections := range hub.connections {
		active := 0
		for _, client := range connections {
			if client != nil && !client.IsClosed() {
				active++
			}
		}
		channels[channel] = map[string]interface{}{
			"client_count": active,
		}
		totalConnections += active
	}

	return map[string]interface{}{
		"total_channels":    len(hub.connections),
		"total_connections": totalConnections,
		"channels":          channels,
	}
}

// HandleConnection 升级HTTP请求并接管连接的读写
func (hub *WebSocketHub) HandleConnection(w http.ResponseWriter, r *http.Request, channel string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("WebSocket 升级失败: %w", err)
	}

	client := &Client{
		conn:      conn,
		channel:   channel,
		send:      make(chan []byte, 64),
		createdAt: time.Now(),
		lastPing:  time.Now(),
	}

	hub.register <- client

	go hub.writePump(client)
	go hub.readPump(client)

	return nil
}

// writePump 把发送队列里的消息写到连接
func (hub *WebSocketHub) writePump(client *Client) {
	// send通道不关闭，由GC回收。关闭会与Send端的入队竞争。
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		client.Close()
	}()

	for {
		select {
		case msg := <-client.send:
			if client.IsClosed() {
				return
			}
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				hub.unregister <- client
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				hub.unregister <- client
				return
			}
		}
	}
}

// readPump 维持读循环以处理pong和连接关闭
func (hub *WebSocketHub) readPump(client *Client) {
	defer func() {
		hub.unregister <- client
	}()

	client.conn.SetReadLimit(4096)
	client.conn.SetReadDeadline(time.Now().Add(hub.pingTimeout))
	client.conn.SetPongHandler(func(string) error {
		client.UpdatePing()
		client.conn.SetReadDeadline(time.Now().Add(hub.pingTimeout))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
		client.UpdatePing()
		client.conn.SetReadDeadline(time.Now().Add(hub.pingTimeout))
	}
}
