package transport

import (
	"context"
	"huddle/auth"
	"huddle/runtime"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Handler upgrades authenticated requests and runs one Client per connection.
type Handler struct {
	log      *slog.Logger
	engine   *runtime.Engine
	upgrader websocket.Upgrader
	cfg      ClientConfig

	mu      sync.Mutex
	clients map[*Client]struct{}
}

func NewHandler(log *slog.Logger, engine *runtime.Engine, origins OriginPolicy, cfg ClientConfig) *Handler {
	h := &Handler{
		log:     log,
		engine:  engine,
		cfg:     cfg,
		clients: make(map[*Client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if origins.Allow(r) {
				return true
			}
			log.Warn("Blocked websocket connection from disallowed origin", "origin", r.Header.Get("Origin"))
			return false
		},
	}
	return h
}

// ServeHTTP blocks for the lifetime of the connection.
// The user id comes from the auth middleware, the engine never trusts the client with it.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("Websocket upgrade failed", "addr", r.RemoteAddr, "error", err)
		return
	}

	client := NewClient(conn, h.log, h.cfg, r.RemoteAddr)
	h.track(client)
	defer h.untrack(client)

	sessionID := uuid.NewString()
	userID := auth.UserIDFromContext(r.Context())
	dispatcher := h.engine.Connect(sessionID, userID, client)
	h.log.Info("Websocket connected", "session", sessionID, "user", userID, "addr", r.RemoteAddr)

	client.Serve(r.Context(), dispatcher)
	h.log.Info("Websocket disconnected", "session", sessionID, "user", userID)
}

// CloseAll asks every open connection to close, each one then runs its own cleanup.
func (h *Handler) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.close()
	}
}

// Drain waits until every connection has run its disconnect cleanup, or ctx ends.
func (h *Handler) Drain(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for h.Open() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Open returns the number of websockets currently served.
func (h *Handler) Open() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Handler) track(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
}

func (h *Handler) untrack(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, client)
}
