// internal/api/websocket.go
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Corphon/SceneStudio/internal/models"
	"github.com/Corphon/SceneStudio/internal/utils"
)

// WebSocket 升级器配置
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// 消息类型
const (
	MessageTypeConnected      = "connected"
	MessageTypeSessionUpdated = "session_updated"
	MessageTypePong           = "pong"
	MessageTypeError          = "error"
)

// WebSocketConnection 定义 WebSocket 连接的接口
type WebSocketConnection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
}

// WebSocketClient 表示一个订阅会话的浏览器连接
type WebSocketClient struct {
	conn      WebSocketConnection
	sessionID string
	send      chan []byte
	closed    int32 // 原子操作标志，0=开启，1=关闭
	lastPing  atomic.Int64
	createdAt time.Time
}

// NewWebSocketClient 创建客户端
func NewWebSocketClient(conn WebSocketConnection, sessionID string) *WebSocketClient {
	client := &WebSocketClient{
		conn:      conn,
		sessionID: sessionID,
		send:      make(chan []byte, 256),
		createdAt: time.Now(),
	}
	client.UpdatePing()
	return client
}

// Close 安全关闭客户端连接。send 通道始终不关闭，广播方可能仍在向其写入，写协程通过 IsClosed 退出
func (client *WebSocketClient) Close() {
	if atomic.CompareAndSwapInt32(&client.closed, 0, 1) {
		if client.conn != nil {
			client.conn.Close()
		}
	}
}

// IsClosed 检查连接是否已关闭
func (client *WebSocketClient) IsClosed() bool {
	return atomic.LoadInt32(&client.closed) == 1
}

// UpdatePing 更新最后ping时间
func (client *WebSocketClient) UpdatePing() {
	client.lastPing.Store(time.Now().UnixNano())
}

// LastPing 最后ping时间
func (client *WebSocketClient) LastPing() time.Time {
	return time.Unix(0, client.lastPing.Load())
}

// IsExpired 检查连接是否超时
func (client *WebSocketClient) IsExpired(timeout time.Duration) bool {
	if timeout <= 0 {
		return true
	}
	return time.Since(client.LastPing()) > timeout
}

// SendMessage 把消息放入发送队列，队列满时丢弃
func (client *WebSocketClient) SendMessage(message map[string]interface{}) error {
	if client.IsClosed() {
		return nil
	}

	msgBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case client.send <- msgBytes:
	default:
		utils.GetLogger().Warn("⚠️ WebSocket 消息队列已满，消息被丢弃", map[string]interface{}{
			"session_id": client.sessionID,
		})
	}
	return nil
}

// SendError 发送错误消息到客户端
func (client *WebSocketClient) SendError(errorMsg string) {
	client.SendMessage(map[string]interface{}{
		"type":      MessageTypeError,
		"error":     errorMsg,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// WebSocketManager 按会话管理全部 WebSocket 连接
type WebSocketManager struct {
	connections map[string]map[*WebSocketClient]struct{} // sessionID -> clients
	register    chan *WebSocketClient
	unregister  chan *WebSocketClient
	done        chan struct{}
	stopOnce    sync.Once
	mutex       sync.RWMutex
	pingTimeout time.Duration
	cleanupTick time.Duration
	logger      *utils.Logger
}

// NewWebSocketManager 创建管理器，调用 Start 后开始处理注册请求
func NewWebSocketManager(logger *utils.Logger) *WebSocketManager {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &WebSocketManager{
		connections: make(map[string]map[*WebSocketClient]struct{}),
		register:    make(chan *WebSocketClient, 256),
		unregister:  make(chan *WebSocketClient, 256),
		done:        make(chan struct{}),
		pingTimeout: 60 * time.Second,
		cleanupTick: 30 * time.Second,
		logger:      logger,
	}
}

// Start 启动管理器主循环
func (manager *WebSocketManager) Start() {
	go manager.run()
}

// Shutdown 关闭全部连接并停止主循环
func (manager *WebSocketManager) Shutdown() {
	manager.stopOnce.Do(func() {
		close(manager.done)
	})
}

// Register 注册客户端
func (manager *WebSocketManager) Register(client *WebSocketClient) bool {
	select {
	case manager.register <- client:
		return true
	case <-manager.done:
		return false
	default:
		return false
	}
}

// Unregister 注销客户端，超时后放弃
func (manager *WebSocketManager) Unregister(client *WebSocketClient) {
	select {
	case manager.unregister <- client:
	case <-manager.done:
	case <-time.After(time.Second):
		manager.logger.Warn("⚠️ WebSocket 客户端注销超时", map[string]interface{}{
			"session_id": client.sessionID,
		})
	}
}

// run 运行 WebSocket 管理器主循环
func (manager *WebSocketManager) run() {
	ticker := time.NewTicker(manager.cleanupTick)
	defer ticker.Stop()

	for {
		select {
		case client := <-manager.register:
			manager.registerClient(client)

		case client := <-manager.unregister:
			manager.unregisterClient(client)

		case <-ticker.C:
			manager.cleanupExpiredConnections()

		case <-manager.done:
			manager.shutdown()
			return
		}
	}
}

// registerClient 注册新客户端
func (manager *WebSocketManager) registerClient(client *WebSocketClient) {
	if client == nil {
		return
	}

	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	if manager.connections[client.sessionID] == nil {
		manager.connections[client.sessionID] = make(map[*WebSocketClient]struct{})
	}
	manager.connections[client.sessionID][client] = struct{}{}

	manager.logger.Info("✅ WebSocket 客户端已连接", map[string]interface{}{
		"session_id": client.sessionID,
	})
}

// unregisterClient 安全注销客户端
func (manager *WebSocketManager) unregisterClient(client *WebSocketClient) {
	if client == nil {
		return
	}

	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	manager.removeLocked(client)
	manager.logger.Info("🔌 WebSocket 客户端已断开连接", map[string]interface{}{
		"session_id": client.sessionID,
	})
}

func (manager *WebSocketManager) removeLocked(client *WebSocketClient) {
	if clients, exists := manager.connections[client.sessionID]; exists {
		delete(clients, client)
		if len(clients) == 0 {
			delete(manager.connections, client.sessionID)
		}
	}
	client.Close()
}

// cleanupExpiredConnections 清理过期和已关闭的连接，返回清理数量
func (manager *WebSocketManager) cleanupExpiredConnections() int {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	removed := 0
	for _, clients := range manager.connections {
		for client := range clients {
			if client.IsClosed() || client.IsExpired(manager.pingTimeout) {
				manager.removeLocked(client)
				removed++
			}
		}
	}
	return removed
}

// DisconnectSession 关闭会话的全部连接，会话被删除时调用
func (manager *WebSocketManager) DisconnectSession(sessionID string) {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	for client := range manager.connections[sessionID] {
		client.Close()
	}
	delete(manager.connections, sessionID)
}

// shutdown 优雅关闭管理器
func (manager *WebSocketManager) shutdown() {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	manager.logger.Info("🛑 正在关闭 WebSocket 管理器...", nil)
	for _, clients := range manager.connections {
		for client := range clients {
			client.Close()
		}
	}
	manager.connections = make(map[string]map[*WebSocketClient]struct{})
}

// ClientCount 会话当前的连接数
func (manager *WebSocketManager) ClientCount(sessionID string) int {
	manager.mutex.RLock()
	defer manager.mutex.RUnlock()
	return len(manager.connections[sessionID])
}

// TotalConnections 全部会话的连接总数
func (manager *WebSocketManager) TotalConnections() int {
	manager.mutex.RLock()
	defer manager.mutex.RUnlock()
	total := 0
	for _, clients := range manager.connections {
		total += len(clients)
	}
	return total
}

// GetStatus 获取管理器状态
func (manager *WebSocketManager) GetStatus() map[string]interface{} {
	manager.mutex.RLock()
	defer manager.mutex.RUnlock()

	sessions := make(map[string]interface{})
	totalConnections := 0

	for sessionID, clients := range manager.connections {
		active := make([]interface{}, 0, len(clients))
		for client := range clients {
			if client.IsClosed() {
				continue
			}
			active = append(active, map[string]interface{}{
				"connected_at": client.createdAt.Format(time.RFC3339),
				"last_ping":    client.LastPing().Format(time.RFC3339),
			})
		}
		sessions[sessionID] = map[string]interface{}{
			"client_count": len(active),
			"clients":      active,
		}
		totalConnections += len(active)
	}

	return map[string]interface{}{
		"total_sessions":       len(manager.connections),
		"total_connections":    totalConnections,
		"sessions":             sessions,
		"ping_timeout_seconds": int(manager.pingTimeout.Seconds()),
	}
}

// BroadcastToSession 向订阅某会话的全部连接发送消息
func (manager *WebSocketManager) BroadcastToSession(sessionID string, message map[string]interface{}) {
	msgBytes, err := json.Marshal(message)
	if err != nil {
		manager.logger.Error("❌ 序列化广播消息失败", map[string]interface{}{"error": err.Error()})
		return
	}

	manager.mutex.RLock()
	clients := make([]*WebSocketClient, 0, len(manager.connections[sessionID]))
	for client := range manager.connections[sessionID] {
		if !client.IsClosed() {
			clients = append(clients, client)
		}
	}
	manager.mutex.RUnlock()

	for _, client := range clients {
		select {
		case client.send <- msgBytes:
		default:
			// 队列满说明客户端消费过慢，直接断开
			client.Close()
		}
	}
}

// BroadcastSnapshot 推送会话变更，作为 SessionService 的监听者注册
func (manager *WebSocketManager) BroadcastSnapshot(snapshot *models.SessionSnapshot) {
	manager.BroadcastToSession(snapshot.ID, map[string]interface{}{
		"type":      MessageTypeSessionUpdated,
		"session":   snapshot,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
