// Package realtime fans server events out to websocket clients.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 << 10
	sendBuffer     = 64
)

var ErrClosed = errors.New("realtime: hub closed")

// Message is the frame pushed to clients.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type inbound struct {
	Action string `json:"action"`
	Room   string `json:"room"`
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	mu     sync.Mutex
	rooms  map[string]struct{}
	closed bool
}

// trySend queues frame without blocking; false means the client is closed or too slow.
func (c *client) trySend(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *client) join(room string) {
	c.mu.Lock()
	c.rooms[room] = struct{}{}
	c.mu.Unlock()
}

func (c *client) in(room string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.rooms[room]
	return ok
}

type Hub struct {
	upgrader websocket.Upgrader
	log      observability.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

func NewHub(logger observability.Logger) *Hub {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log:     logger.With(observability.F("component", "realtime")),
		clients: make(map[*client]struct{}),
	}
}

// ClientCount reports connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := logctx.FromOr(r.Context(), h.log)
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("ws_upgrade_failed", observability.F("error", err.Error()))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer), rooms: map[string]struct{}{}}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	logger.Debug("ws_client_connected")

	go h.writePump(c)
	h.readPump(c)
}

// Broadcast sends an event to every connected client. Slow clients are dropped.
func (h *Hub) Broadcast(ctx context.Context, event string, data any) error {
	return h.deliver(ctx, "", event, data)
}

// BroadcastTo sends an event to the clients that joined room.
func (h *Hub) BroadcastTo(ctx context.Context, room, event string, data any) error {
	return h.deliver(ctx, room, event, data)
}

func (h *Hub) deliver(ctx context.Context, room, event string, data any) error {
	frame, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		return err
	}
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return ErrClosed
	}
	var slow []*client
	for c := range h.clients {
		if room != "" && !c.in(room) {
			continue
		}
		if !c.trySend(frame) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		logctx.FromOr(ctx, h.log).Warn("ws_client_dropped_slow", observability.F("event", event))
		h.remove(c)
	}
	return nil
}

// Close disconnects every client and refuses further broadcasts.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = map[*client]struct{}{}
	h.mu.Unlock()

	for c := range clients {
		c.close()
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	h.mu.Unlock()
	if ok {
		c.close()
	}
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("ws_read_failed", observability.F("error", err.Error()))
			}
			return
		}
		var msg inbound
		if json.Unmarshal(raw, &msg) != nil {
			continue
		}
		if msg.Action == "join" && msg.Room != "" {
			c.join(msg.Room)
			if ack, err := json.Marshal(Message{Event: "joined", Data: map[string]string{"room": msg.Room}}); err == nil {
				c.trySend(ack)
			}
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
