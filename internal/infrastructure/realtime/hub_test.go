package realtime

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, h *Hub) (*websocket.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(h)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn, func() {
		_ = conn.Close()
		srv.Close()
	}
}

func TestBroadcastReachesClient(t *testing.T) {
	h := NewHub(nil)
	conn, done := dial(t, h)
	defer done()

	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, h.Broadcast(context.Background(), "stock:update", map[string]any{"id": "v1", "stock": 3}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Event string         `json:"event"`
		Data  map[string]any `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "stock:update", msg.Event)
	assert.Equal(t, "v1", msg.Data["id"])
}

func TestRoomBroadcastOnlyReachesMembers(t *testing.T) {
	h := NewHub(nil)
	conn, done := dial(t, h)
	defer done()
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "join", "room": "order:o1"}))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ack Message
	require.NoError(t, conn.ReadJSON(&ack))
	assert.Equal(t, "joined", ack.Event)

	require.NoError(t, h.BroadcastTo(context.Background(), "order:o2", "order:update", "skip"))
	require.NoError(t, h.BroadcastTo(context.Background(), "order:o1", "order:update", "hit"))

	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "hit", msg.Data)
}

func TestClosedHubRejectsBroadcast(t *testing.T) {
	h := NewHub(nil)
	h.Close()
	assert.ErrorIs(t, h.Broadcast(context.Background(), "order:update", nil), ErrClosed)
}
