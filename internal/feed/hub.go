// Package feed streams transcript events to browser clients over WebSocket.
//
// A [Hub] is a [pipeline.Sink]: every published event is fanned out to all
// connected clients as a JSON text message. Each client has its own bounded
// queue; a client that falls behind loses events instead of slowing the
// pipeline. Newly connected clients first receive the most recent events so
// a reloaded UI can rebuild its transcript.
package feed

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/MrWong99/interviewassist/internal/observe"
	"github.com/MrWong99/interviewassist/internal/pipeline"
)

const (
	defaultBuffer  = 64
	defaultHistory = 50
	writeTimeout   = 5 * time.Second
)

// Option configures a [Hub].
type Option func(*Hub)

// WithBuffer sets the per-client queue length.
func WithBuffer(n int) Option {
	return func(h *Hub) { h.buffer = max(n, 1) }
}

// WithHistory sets how many recent events are replayed to new clients. Zero
// disables replay.
func WithHistory(n int) Option {
	return func(h *Hub) { h.history = max(n, 0) }
}

// WithOriginPatterns allows cross-origin WebSocket connections from hosts
// matching the given patterns.
func WithOriginPatterns(patterns ...string) Option {
	return func(h *Hub) { h.origins = patterns }
}

// WithMetrics records client counts and drops on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(h *Hub) { h.metrics = m }
}

type client struct {
	ch      chan pipeline.TranscriptEvent
	done    chan struct{}
	dropped atomic.Int64
}

// Hub fans transcript events out to WebSocket clients. It is safe for
// concurrent use.
type Hub struct {
	buffer  int
	history int
	origins []string
	metrics *observe.Metrics

	mu      sync.Mutex
	clients map[*client]struct{}
	recent  []pipeline.TranscriptEvent
	closed  bool
}

// NewHub creates an empty Hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		buffer:  defaultBuffer,
		history: defaultHistory,
		clients: make(map[*client]struct{}),
	}
	for _, o := range opts {
		o(h)
	}
	if h.metrics == nil {
		h.metrics = observe.DefaultMetrics()
	}
	return h
}

// Publish implements [pipeline.Sink]. It never blocks.
func (h *Hub) Publish(ev pipeline.TranscriptEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	if h.history > 0 {
		h.recent = append(h.recent, ev)
		if len(h.recent) > h.history {
			h.recent = h.recent[len(h.recent)-h.history:]
		}
	}
	for c := range h.clients {
		select {
		case c.ch <- ev:
		default:
			c.dropped.Add(1)
			h.metrics.RecordDrop(context.Background(), "feed")
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and makes further Publish calls no-ops.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for c := range h.clients {
		close(c.done)
	}
	return nil
}

// add registers a client and queues the replay history. It returns nil once
// the hub is closed.
func (h *Hub) add() *client {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	c := &client{
		ch:   make(chan pipeline.TranscriptEvent, h.buffer+len(h.recent)),
		done: make(chan struct{}),
	}
	for _, ev := range h.recent {
		c.ch <- ev
	}
	h.clients[c] = struct{}{}
	h.metrics.FeedClients.Add(context.Background(), 1)
	return c
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	h.metrics.FeedClients.Add(context.Background(), -1)
	if n := c.dropped.Load(); n > 0 {
		slog.Info("feed: client disconnected after dropping events", "dropped", n)
	}
}

// ServeHTTP upgrades the request to a WebSocket and streams events until the
// client disconnects or the hub is closed. Messages from the client are
// discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		slog.Warn("feed: websocket accept failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	defer conn.CloseNow()

	c := h.add()
	if c == nil {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer h.remove(c)

	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case ev := <-c.ch:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, ev)
			cancel()
			if err != nil {
				slog.Debug("feed: write failed, dropping client", "remote", r.RemoteAddr, "err", err)
				return
			}
		}
	}
}

var (
	_ pipeline.Sink = (*Hub)(nil)
	_ http.Handler  = (*Hub)(nil)
)
