package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qwei/desk-mcp/internal/domain/event"
)

func init() { gin.SetMode(gin.TestMode) }

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	r := gin.New()
	hub.Register(r.Group("/api/ws"))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })

	// The hub registers the client from the handler goroutine.
	require.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return len(hub.clients) == 1
	}, time.Second, 10*time.Millisecond)

	return conn
}

func TestHub_BroadcastReachesClient(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)

	hub.Broadcast(event.StatusChange("FileAgent_1_abc12345", "FileAgent", "offline"))

	conn.SetReadDeadline(time.Now().Add(time.Second)) //nolint:errcheck
	var got event.Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, event.TypeStatusChanged, got.Type)
	assert.Equal(t, "FileAgent", got.LogicalName)
	assert.Equal(t, "offline", got.Status)
}

func TestHub_RemovesDisconnectedClient(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)

	require.NoError(t, conn.Close())

	// The read loop notices the disconnect and drops the registration, so
	// later broadcasts see an empty client set.
	require.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return len(hub.clients) == 0
	}, time.Second, 10*time.Millisecond)

	hub.Broadcast(event.StatusChange("FileAgent_1_abc12345", "FileAgent", "online"))
}
