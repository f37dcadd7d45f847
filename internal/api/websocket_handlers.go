// internal/api/websocket_handlers.go
package api

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Corphon/SceneStudio/internal/services"
	"github.com/Corphon/SceneStudio/internal/utils"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsPingPeriod   = 54 * time.Second
)

// WebSocketHandler 处理会话 WebSocket 连接
type WebSocketHandler struct {
	manager  *WebSocketManager
	sessions *services.SessionService
	response *ResponseHelper
	logger   *utils.Logger
}

// NewWebSocketHandler 创建 WebSocket 处理器，并订阅会话变更
func NewWebSocketHandler(manager *WebSocketManager, sessions *services.SessionService, logger *utils.Logger) *WebSocketHandler {
	if logger == nil {
		logger = utils.GetLogger()
	}
	sessions.Subscribe(manager.BroadcastSnapshot)

	return &WebSocketHandler{
		manager:  manager,
		sessions: sessions,
		response: NewResponseHelper(),
		logger:   logger,
	}
}

// SessionWebSocket 处理 /ws/sessions/:id
func (wh *WebSocketHandler) SessionWebSocket(c *gin.Context) {
	sessionID := c.Param("id")
	snapshot, err := wh.sessions.Snapshot(sessionID)
	if err != nil {
		wh.response.FromError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		wh.logger.Error("❌ 会话 WebSocket 升级失败", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return
	}

	client := NewWebSocketClient(conn, sessionID)
	if !wh.manager.Register(client) {
		wh.logger.Error("❌ 无法注册 WebSocket 客户端，注册通道已满", nil)
		conn.Close()
		return
	}

	go wh.handleWebSocketWrites(client)

	client.SendMessage(map[string]interface{}{
		"type":      MessageTypeConnected,
		"session":   snapshot,
		"timestamp": time.Now().Format(time.RFC3339),
	})

	// 读循环阻塞到连接关闭
	wh.handleWebSocketReads(client)
}

// handleWebSocketReads 处理 WebSocket 读取
func (wh *WebSocketHandler) handleWebSocketReads(client *WebSocketClient) {
	defer wh.manager.Unregister(client)

	client.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	client.conn.SetPongHandler(func(string) error {
		client.UpdatePing()
		client.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	for !client.IsClosed() {
		_, messageBytes, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				wh.logger.Warn("❌ WebSocket 读取错误", map[string]interface{}{"error": err.Error()})
			}
			return
		}
		client.UpdatePing()
		client.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		var message map[string]interface{}
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			client.SendError("无效的JSON消息")
			continue
		}
		wh.handleMessage(client, message)
	}
}

// handleWebSocketWrites 处理 WebSocket 写入
func (wh *WebSocketHandler) handleWebSocketWrites(client *WebSocketClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		client.Close()
	}()

	for {
		select {
		case message := <-client.send:
			if client.IsClosed() {
				return
			}
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				wh.logger.Warn("❌ WebSocket 写入失败", map[string]interface{}{"error": err.Error()})
				return
			}

		case <-ticker.C:
			if client.IsClosed() {
				return
			}
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage 处理客户端消息，客户端只能查询，修改走HTTP接口
func (wh *WebSocketHandler) handleMessage(client *WebSocketClient, message map[string]interface{}) {
	msgType, _ := message["type"].(string)

	switch msgType {
	case "ping":
		client.SendMessage(map[string]interface{}{
			"type":      MessageTypePong,
			"timestamp": time.Now().Unix(),
		})
	case "get_session":
		snapshot, err := wh.sessions.Snapshot(client.sessionID)
		if err != nil {
			client.SendError(err.Error())
			return
		}
		client.SendMessage(map[string]interface{}{
			"type":      MessageTypeSessionUpdated,
			"session":   snapshot,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	default:
		client.SendError("未知的消息类型: " + msgType)
	}
}
