package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"aerosim/pkg/sim"
)

const (
	sendChSize = 16
	writeWait  = 2 * time.Second
)

// StreamHandler pushes every telemetry snapshot to websocket clients. Delivery is best-effort: a
// client whose buffer is full is disconnected rather than slowing the session loop.
type StreamHandler struct {
	upgrader ws.Upgrader

	mu      sync.Mutex
	clients map[*streamClient]struct{}
}

// streamClient is one websocket connection with a single write goroutine.
type streamClient struct {
	conn   *ws.Conn
	sendCh chan []byte
	done   chan struct{}
	once   sync.Once
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler() *StreamHandler {
	return &StreamHandler{
		upgrader: ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		clients:  make(map[*streamClient]struct{}),
	}
}

// Clients returns the number of connected clients.
func (h *StreamHandler) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish implements sim.Sink. It never blocks.
func (h *StreamHandler) Publish(t *sim.Telemetry) {
	h.mu.Lock()
	if len(h.clients) == 0 {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	data, err := json.Marshal(t)
	if err != nil {
		slog.Error("Stream: failed to encode telemetry", "error", err)
		return
	}

	var slow []*streamClient
	h.mu.Lock()
	for c := range h.clients {
		select {
		case c.sendCh <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		slog.Warn("Stream: dropping slow client")
		h.remove(c)
	}
}

// ServeHTTP upgrades the request and streams until the client goes away.
// GET /ws/telemetry
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Stream: upgrade failed", "error", err)
		return
	}

	c := &streamClient{
		conn:   conn,
		sendCh: make(chan []byte, sendChSize),
		done:   make(chan struct{}),
	}
	h.add(c)
	slog.Debug("Stream: client connected", "remote", r.RemoteAddr)

	go h.writeLoop(c)
	h.readLoop(c)
}

// writeLoop drains sendCh and writes messages to the websocket.
func (h *StreamHandler) writeLoop(c *streamClient) {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.sendCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				h.remove(c)
				return
			}
			if err := c.conn.WriteMessage(ws.TextMessage, data); err != nil {
				slog.Debug("Stream: write error", "error", err)
				h.remove(c)
				return
			}
		}
	}
}

// readLoop discards client messages; it only detects the close.
func (h *StreamHandler) readLoop(c *streamClient) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *StreamHandler) add(c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *StreamHandler) remove(c *streamClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()

	c.once.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// Close disconnects every client.
func (h *StreamHandler) Close() {
	h.mu.Lock()
	clients := make([]*streamClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.remove(c)
	}
}
