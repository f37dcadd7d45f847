package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/SceneStudio/internal/services"
)

type fakeConn struct {
	mu     sync.Mutex
	closed bool
}

func (f *fakeConn) WriteMessage(int, []byte) error { return nil }
func (f *fakeConn) ReadMessage() (int, []byte, error) {
	return 0, nil, errors.New("not implemented")
}
func (f *fakeConn) SetReadDeadline(time.Time) error { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}
func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func dialSession(t *testing.T, server *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/sessions/" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var message map[string]interface{}
	require.NoError(t, conn.ReadJSON(&message))
	return message
}

func TestSessionWebSocketReceivesUpdates(t *testing.T) {
	ts := newTestServer(t, true)
	server := httptest.NewServer(ts.Engine)
	defer server.Close()

	id := ts.createSession(t).ID
	conn := dialSession(t, server, id)

	welcome := readMessage(t, conn)
	assert.Equal(t, MessageTypeConnected, welcome["type"])

	require.Eventually(t, func() bool {
		return ts.WebSocket.ClientCount(id) == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, err := ts.sessions.Update(id, func(s *services.Session) error {
		s.Advance()
		return nil
	})
	require.NoError(t, err)

	update := readMessage(t, conn)
	assert.Equal(t, MessageTypeSessionUpdated, update["type"])
	session := update["session"].(map[string]interface{})
	assert.Equal(t, id, session["id"])
	assert.Len(t, session["scenes"], 10)
}

func TestSessionWebSocketPing(t *testing.T) {
	ts := newTestServer(t, false)
	server := httptest.NewServer(ts.Engine)
	defer server.Close()

	id := ts.createSession(t).ID
	conn := dialSession(t, server, id)
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	assert.Equal(t, MessageTypePong, readMessage(t, conn)["type"])

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "dance"}))
	assert.Equal(t, MessageTypeError, readMessage(t, conn)["type"])
}

func TestSessionWebSocketUnknownSession(t *testing.T) {
	ts := newTestServer(t, false)
	server := httptest.NewServer(ts.Engine)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/sessions/missing"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestManagerCleanupExpired(t *testing.T) {
	manager := NewWebSocketManager(nil)
	manager.pingTimeout = time.Minute

	fresh := NewWebSocketClient(&fakeConn{}, "s1")
	staleConn := &fakeConn{}
	stale := NewWebSocketClient(staleConn, "s1")
	stale.lastPing.Store(time.Now().Add(-2 * time.Minute).UnixNano())

	manager.registerClient(fresh)
	manager.registerClient(stale)
	require.Equal(t, 2, manager.ClientCount("s1"))

	assert.Equal(t, 1, manager.cleanupExpiredConnections())
	assert.Equal(t, 1, manager.ClientCount("s1"))
	assert.True(t, stale.IsClosed())
	assert.True(t, staleConn.closed)
	assert.False(t, fresh.IsClosed())
}

func TestManagerBroadcastOnlyToSession(t *testing.T) {
	manager := NewWebSocketManager(nil)
	a := NewWebSocketClient(&fakeConn{}, "a")
	b := NewWebSocketClient(&fakeConn{}, "b")
	manager.registerClient(a)
	manager.registerClient(b)

	manager.BroadcastToSession("a", map[string]interface{}{"type": "x"})

	assert.Len(t, a.send, 1)
	assert.Len(t, b.send, 0)

	status := manager.GetStatus()
	assert.Equal(t, 2, status["total_connections"])

	manager.DisconnectSession("a")
	assert.True(t, a.IsClosed())
	assert.Equal(t, 0, manager.ClientCount("a"))
}

func TestClosedClientKeepsSendChannelOpen(t *testing.T) {
	conn := &fakeConn{}
	client := NewWebSocketClient(conn, "s1")
	client.Close()
	client.Close()

	assert.True(t, client.IsClosed())
	assert.NoError(t, client.SendMessage(map[string]interface{}{"type": "ping"}))
	assert.Empty(t, client.send)

	// a broadcaster racing with Close may still write to the buffer
	assert.NotPanics(t, func() { client.send <- []byte("late") })
}
