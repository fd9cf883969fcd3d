package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"roomstatus-backend/internal/metrics"
)

// VerifyFunc authenticates a bearer token and returns the principal name.
type VerifyFunc func(token string) (string, error)

// Hub tracks every connected session and fans out events to all of them.
// Delivery is best-effort at-most-once per connection; a session that missed
// events resynchronizes with a full snapshot pull on reconnect.
type Hub struct {
	log    *slog.Logger
	verify VerifyFunc

	mu    sync.RWMutex
	conns map[*Conn]struct{}
}

// NewHub creates a hub that refuses unauthenticated connections using verify.
func NewHub(logger *slog.Logger, verify VerifyFunc) *Hub {
	return &Hub{log: logger, verify: verify, conns: make(map[*Conn]struct{})}
}

// Broadcast marshals ev once and enqueues it on every connected session.
// Callers invoke it in commit order; per-connection FIFO queues preserve
// that order on the wire.
func (h *Hub) Broadcast(ev Event) {
	b, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("ws.broadcast.marshal", "err", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns {
		if !c.enqueue(b) {
			h.log.Warn("ws.broadcast.drop", "type", string(ev.Type))
		}
	}
	metrics.EventsBroadcast.WithLabelValues(string(ev.Type)).Inc()
}

// Sessions returns the number of currently connected sessions.
func (h *Hub) Sessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) join(c *Conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) leave(c *Conn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
}

// ServeWS handles a new live-channel connection. The client presents its
// token either as a "token" query parameter (browsers cannot set headers on
// websocket requests) or a bearer Authorization header.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	principal, err := h.verify(token)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := Accept(w, r)
	if err != nil {
		h.log.Error("ws.accept", "err", err)
		return
	}

	c := NewConn(conn)
	h.join(c)
	h.log.Info("ws.session.open", "principal", principal, "sessions", h.Sessions())

	ctx := r.Context()
	go c.WriteLoop(ctx)

	// The live channel is server-to-client only; drain inbound frames until
	// the peer goes away.
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			break
		}
	}

	h.leave(c)
	_ = c.Close()
	h.log.Info("ws.session.closed", "principal", principal, "sessions", h.Sessions())
}
