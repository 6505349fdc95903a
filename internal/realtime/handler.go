package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/good-yellow-bee/devroom/internal/chat"
	"github.com/good-yellow-bee/devroom/internal/metrics"
	"github.com/good-yellow-bee/devroom/internal/models"
	"github.com/good-yellow-bee/devroom/internal/room"
)

// Event names shared with the chat protocol.
const (
	EventMessage = chat.EventMessage
	EventError   = chat.EventError
)

// Chat is the room protocol driven by connections.
type Chat interface {
	Join(m room.Member, who models.Identity, projectID string) error
	Leave(m room.Member, who models.Identity)
	HandleMessage(ctx context.Context, sender models.Identity, projectID, text string)
}

// Config tunes the websocket transport.
type Config struct {
	// AllowedOrigins lists browser origins allowed to connect. Empty or "*" allows all.
	AllowedOrigins  []string
	MaxMessageBytes int64
	SendQueue       int
	PingInterval    time.Duration
	WriteTimeout    time.Duration
	// MessageRate is the sustained inbound messages per second per connection.
	MessageRate  float64
	MessageBurst int
}

func (c *Config) setDefaults() {
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = 1 << 20
	}
	if c.SendQueue <= 0 {
		c.SendQueue = 256
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 25 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.MessageRate <= 0 {
		c.MessageRate = 5
	}
	if c.MessageBurst <= 0 {
		c.MessageBurst = 10
	}
}

// Handler upgrades admitted requests and runs their connections.
// Hijacked connections outlive http.Server.Shutdown, so the handler
// tracks them itself and Close ends them.
type Handler struct {
	gate     *Gate
	chat     Chat
	cfg      Config
	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	conns  map[*Conn]struct{}
	closed bool
	active sync.WaitGroup
}

// NewHandler creates the websocket endpoint handler.
func NewHandler(gate *Gate, chat Chat, cfg Config) *Handler {
	cfg.setDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Handler{
		gate: gate,
		chat: chat,
		cfg:  cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
		ctx:    ctx,
		cancel: cancel,
		conns:  make(map[*Conn]struct{}),
	}
}

// Close refuses new connections, closes every live one and waits until
// each has left its room. Safe to call more than once.
func (h *Handler) Close() {
	h.mu.Lock()
	if !h.closed {
		h.closed = true
		h.cancel()
		for c := range h.conns {
			c.close()
		}
	}
	h.mu.Unlock()

	h.active.Wait()
}

func (h *Handler) liveConns() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Handler) track(c *Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.conns[c] = struct{}{}
	h.active.Add(1)
	return true
}

func (h *Handler) untrack(c *Conn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
	h.active.Done()
}

func (h *Handler) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func originChecker(allowed []string) func(r *http.Request) bool {
	allowAll := len(allowed) == 0
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			allowAll = true
		}
		set[o] = true
	}

	return func(r *http.Request) bool {
		if allowAll {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // non-browser clients
		}
		return set[origin]
	}
}

// ServeHTTP admits the request through the gate, then upgrades it and joins the project room.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.isClosed() {
		writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "server is shutting down")
		return
	}

	adm, err := h.gate.Admit(r.Context(), HandshakeFromRequest(r))
	if err != nil {
		var rej *Rejection
		if errors.As(err, &rej) {
			writeRejection(w, rej)
			return
		}
		log.Printf("realtime admit error: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		log.Printf("realtime upgrade failed: %v", err)
		return
	}

	h.serve(newConn(ws, h.cfg), adm)
}

func (h *Handler) serve(c *Conn, adm *Admission) {
	if !h.track(c) {
		c.close()
		return
	}
	defer h.untrack(c)

	who := adm.Identity()
	projectID := adm.Project.ID

	metrics.WSConnectionsActive.Inc()
	defer metrics.WSConnectionsActive.Dec()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump()
	}()

	if err := h.chat.Join(c, who, projectID); err != nil {
		log.Printf("realtime join failed: user %s project %s: %v", who.ID, projectID, err)
		c.close()
		<-writerDone
		return
	}
	log.Printf("realtime connected: user %s project %s", who.Email, projectID)

	ctx, cancel := context.WithCancel(h.ctx)
	c.readPump(ctx, h.cfg.MaxMessageBytes, func(ctx context.Context, text string) {
		h.chat.HandleMessage(ctx, who, projectID, text)
	})
	cancel()

	h.chat.Leave(c, who)
	c.close()
	<-writerDone
	log.Printf("realtime disconnected: user %s project %s", who.Email, projectID)
}

func writeRejection(w http.ResponseWriter, rej *Rejection) {
	code := "UNAUTHORIZED"
	switch rej.Status {
	case http.StatusBadRequest:
		code = "BAD_REQUEST"
	case http.StatusForbidden:
		code = "FORBIDDEN"
	case http.StatusNotFound:
		code = "NOT_FOUND"
	}
	writeError(w, rej.Status, code, rej.Reason)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}
