package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/surstitch/leadboard/internal/api"
	"github.com/surstitch/leadboard/internal/compute"
	"github.com/surstitch/leadboard/internal/store"
)

// EventMetrics is the event name of every message the hub sends.
const EventMetrics = "metrics"

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16

	// maxReadSize caps inbound frames; clients only send control frames.
	maxReadSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Origins are checked by the CORS middleware in front of the hub.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the JSON envelope sent to clients.
type Message struct {
	Event string              `json:"event"`
	Data  api.MetricsResponse `json:"data"`
}

// Hub manages WebSocket clients and pushes each one the dashboard metrics
// for its own filters: on connect, every interval, and after every reload.
type Hub struct {
	store    *store.Store
	interval time.Duration
	kick     chan struct{}

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool // set once Run has returned
}

// client represents one connected WebSocket client.
type client struct {
	id      string
	filters compute.Filters
	conn    *websocket.Conn
	send    chan []byte
}

// New creates a Hub that reads from st and broadcasts every interval. A
// non-positive interval disables the ticker; Notify still broadcasts.
func New(st *store.Store, interval time.Duration) *Hub {
	return &Hub{
		store:    st,
		interval: interval,
		kick:     make(chan struct{}, 1),
		clients:  make(map[*client]struct{}),
	}
}

// Run starts the broadcast loop. Run blocks until ctx is cancelled, then
// closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	var tick <-chan time.Time
	if h.interval > 0 {
		t := time.NewTicker(h.interval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-tick:
			h.broadcast()
		case <-h.kick:
			h.broadcast()
		}
	}
}

// Notify schedules a broadcast outside the ticker. It never blocks; calls
// made while a broadcast is already pending are merged. Suitable as a
// store.OnReload callback.
func (h *Hub) Notify() {
	select {
	case h.kick <- struct{}{}:
	default:
	}
}

// ServeHTTP upgrades the HTTP connection to WebSocket and serves the client.
// Filters come from the status, source, converted and q query parameters; an
// invalid filter is rejected with 400 before the upgrade. Blocks until the
// connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f, err := api.ParseFilters(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		id:      uuid.NewString(),
		filters: f,
		conn:    conn,
		send:    make(chan []byte, sendBufSize),
	}
	// First message goes out before the first tick. c.send is not shared
	// until register, so the send cannot race a close.
	if data, err := h.buildMessage(f); err == nil {
		c.send <- data
	}
	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeTimeout))
		conn.Close()
		return
	}
	defer h.unregister(c)

	go c.writePump()
	c.readPump()
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// --- internal ---------------------------------------------------------------

// register adds c unless the hub has shut down.
func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	slog.Debug("ws: client connected", "client", c.id, "clients", n)
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		slog.Debug("ws: client disconnected", "client", c.id, "clients", n)
	}
}

// broadcast sends every client the metrics for its filters. Clients sharing
// a filter set share one encoded message. Sends happen under the read lock so
// unregister cannot close a channel mid-send; clients whose buffer is full
// are dropped afterwards.
func (h *Hub) broadcast() {
	encoded := make(map[compute.Filters][]byte)
	var slow []*client

	h.mu.RLock()
	for c := range h.clients {
		data, ok := encoded[c.filters]
		if !ok {
			var err error
			if data, err = h.buildMessage(c.filters); err != nil {
				slog.Error("ws: encode failed", "client", c.id, "err", err)
				continue
			}
			encoded[c.filters] = data
		}
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		slog.Warn("ws: dropping slow client", "client", c.id)
		h.unregister(c)
	}
}

func (h *Hub) buildMessage(f compute.Filters) ([]byte, error) {
	return json.Marshal(Message{
		Event: EventMetrics,
		Data:  api.BuildMetrics(h.store, f),
	})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// writePump forwards queued messages to the connection and keeps it alive
// with pings. It owns all writes to conn and exits when send is closed or a
// write fails.
func (c *client) writePump() {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	defer c.conn.Close()

	for {
		var (
			kind    = websocket.TextMessage
			payload []byte
		)
		select {
		case msg, open := <-c.send:
			if !open {
				kind = websocket.CloseMessage
			}
			payload = msg
		case <-ping.C:
			kind = websocket.PingMessage
		}

		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(kind, payload); err != nil || kind == websocket.CloseMessage {
			return
		}
	}
}

// readPump discards client frames, handling pongs, until the peer goes away
// or stops answering pings.
func (c *client) readPump() {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxReadSize)
	extend := func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
	_ = extend("")
	c.conn.SetPongHandler(extend)

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
