// Package ws provides a WebSocket broadcaster. Clients connect, optionally
// subscribe to a set of topics, and receive every update published while
// they are connected. Delivery is fire-and-forget: a disconnected or slow
// subscriber simply misses messages.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/workstream/workstream/pkg/workstream"
)

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
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Allow all origins — callers should apply CORS at the reverse-proxy level.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Envelope is the JSON frame sent to clients for every broadcast.
type Envelope struct {
	Topic   string `json:"topic"`
	Message any    `json:"message"`
}

// Hub manages WebSocket client connections and implements
// workstream.Broadcaster. A client that connects with a "topics" query
// parameter receives only those topics; without one it receives everything.
type Hub struct {
	logger workstream.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

// client represents one connected WebSocket client. send is never closed;
// done signals writePump to exit, so a concurrent Broadcast can never send
// on a closed channel.
type client struct {
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	topics map[string]struct{} // empty means all topics
}

func (c *client) wants(topic string) bool {
	if len(c.topics) == 0 {
		return true
	}
	_, ok := c.topics[topic]
	return ok
}

// NewHub creates a Hub. logger may be nil.
func NewHub(logger workstream.Logger) *Hub {
	if logger == nil {
		logger = &workstream.NoopLogger{}
	}
	return &Hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// Broadcast implements workstream.Broadcaster. The message is delivered to
// every connected client subscribed to the topic; clients whose outgoing
// buffer is full are disconnected rather than blocking the pipeline.
func (h *Hub) Broadcast(ctx context.Context, topic string, message any) error {
	data, err := json.Marshal(Envelope{Topic: topic, Message: message})
	if err != nil {
		return err
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		if c.wants(topic) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.send <- data:
		default:
			// Client's outgoing buffer is full — disconnect it.
			h.unregister(c)
			h.logger.Warn("websocket client dropped, send buffer full")
		}
	}
	return nil
}

// ServeHTTP upgrades the HTTP connection to WebSocket and serves the client.
// Blocks until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufSize),
		done: make(chan struct{}),
	}
	if raw := r.URL.Query().Get("topics"); raw != "" {
		c.topics = make(map[string]struct{})
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				c.topics[t] = struct{}{}
			}
		}
	}

	if !h.register(c) {
		conn.Close()
		return
	}
	defer h.unregister(c)

	go c.writePump()
	c.readPump() // blocks until connection closes
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects all clients and rejects further connections.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		close(c.done)
		delete(h.clients, c)
	}
	return nil
}

// --- internal ---------------------------------------------------------------

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

// unregister removes the client and signals its writePump. The first removal
// wins; the send channel is left open so in-flight broadcasts cannot panic.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.done)
	}
	h.mu.Unlock()
}

// writePump drains the client's send channel and forwards messages to the
// WebSocket connection. It also sends periodic ping frames. Runs in its own
// goroutine per client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-c.done:
			// Hub is shutting down or the client was removed.
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads frames from the connection to process control messages
// (pong, close) and detect disconnects. Blocks until the connection closes.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
