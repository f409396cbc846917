package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wirnn/wirnn-service/internal/api"
	"github.com/wirnn/wirnn-service/internal/efd"
	"github.com/wirnn/wirnn-service/internal/metrics"
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

// Querier is the subset of the EFD client the hub needs.
type Querier interface {
	SelectTimeSeries(ctx context.Context, req efd.TimeSeriesRequest) (efd.Table, error)
}

// Message is the JSON envelope sent to clients. On connect the client
// receives a "hello" event listing the streamed topics; each poll tick
// that finds fresh rows produces one "samples" event per topic.
type Message struct {
	Event  string                  `json:"event"`
	Topic  string                  `json:"topic,omitempty"`
	Topics []string                `json:"topics,omitempty"`
	Data   *api.TimeSeriesResponse `json:"data,omitempty"`
}

// Hub manages WebSocket client connections and broadcasts fresh samples
// for the configured topics. Every interval it queries each topic for rows
// newer than its cursor and sends them to all connected clients. A single
// query result is never split or paged.
type Hub struct {
	querier   Querier
	topics    []string
	interval  time.Duration
	collector *metrics.Collector

	// cursors tracks, per topic, the start time of the next poll.
	// Touched only by the Run loop.
	cursors map[string]time.Time
	now     func() time.Time // injectable for deterministic tests

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// client represents one connected WebSocket client.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// New creates a Hub polling querier for topics every interval.
// collector may be nil.
func New(querier Querier, topics []string, interval time.Duration, collector *metrics.Collector) *Hub {
	return &Hub{
		querier:   querier,
		topics:    topics,
		interval:  interval,
		collector: collector,
		cursors:   make(map[string]time.Time),
		now:       time.Now,
		clients:   make(map[*client]struct{}),
	}
}

// Run starts the poll/broadcast loop. It blocks until ctx is cancelled,
// then closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	start := h.now().UTC()
	for _, topic := range h.topics {
		h.cursors[topic] = start
	}

	t := time.NewTicker(h.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-t.C:
			h.poll(ctx)
		}
	}
}

// poll queries each topic for rows newer than its cursor and broadcasts
// any fresh samples. A failed query leaves the topic's cursor in place so
// the rows are retried on the next tick.
func (h *Hub) poll(ctx context.Context) {
	for _, topic := range h.topics {
		since := h.cursors[topic]
		table, err := h.querier.SelectTimeSeries(ctx, efd.TimeSeriesRequest{
			Topic: topic,
			Start: &since,
		})
		if err != nil {
			h.collector.IncQueryError()
			slog.Warn("ws: topic poll failed", "topic", topic, "err", err)
			continue
		}
		h.collector.IncQuery()
		h.cursors[topic] = h.now().UTC()

		if table.Len() == 0 {
			continue
		}

		resp := api.ToTimeSeriesResponse(table)
		data, err := json.Marshal(Message{Event: "samples", Topic: topic, Data: &resp})
		if err != nil {
			continue
		}
		h.broadcast(data)
	}
}

// ServeHTTP upgrades the HTTP connection to WebSocket and serves the
// client. The hello envelope is sent immediately on connect. Blocks until
// the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufSize),
	}
	h.register(c)
	defer h.unregister(c)

	if data, err := json.Marshal(Message{Event: "hello", Topics: h.topics}); err == nil {
		select {
		case c.send <- data:
		default:
		}
	}

	go c.writePump()
	c.readPump() // blocks until connection closes
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// --- internal ---------------------------------------------------------------

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *Hub) broadcast(data []byte) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.send <- data:
		default:
			// Client's outgoing buffer is full — disconnect it.
			h.unregister(c)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
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
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				// Channel was closed (hub is shutting down or client removed).
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

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
