// Package api exposes the HTTP side of the chat: accounts, the default group, history and the websocket endpoint.
package api

import (
	"context"
	"huddle/auth"
	"huddle/internal"
	"huddle/observability"
	"huddle/services"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// OnlineLister is implemented by the redis presence cache.
type OnlineLister interface {
	OnlineUsers(ctx context.Context) ([]string, error)
}

// Inspector returns a summary of the stored keys under a prefix.
type Inspector func(prefix string, limit int) ([]internal.InspectRow, error)

type Dependencies struct {
	Log        *slog.Logger
	NodeID     string
	Auth       services.IAuthService
	Chat       services.IChatService
	Tokens     *auth.TokenIssuer
	Monitoring *observability.MonitoringManager
	Websocket  http.Handler
	// Optional
	Online  OnlineLister
	Inspect Inspector
}

// NewRouter wires HTTP routes to the services.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(deps.Log))
	r.Use(middleware.Recoverer)

	authHandler := NewAuthHandler(deps.Log, deps.Auth)
	chatHandler := NewChatHandler(deps.Log, deps.Chat, deps.Online)
	requireToken := auth.Middleware(deps.Tokens)

	r.Get("/health", health(deps.NodeID, deps.Monitoring))

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(r chi.Router) {
			authHandler.RegisterRoutes(r, requireToken)
		})
		api.Route("/chat", func(r chi.Router) {
			r.Use(requireToken)
			chatHandler.RegisterRoutes(r)
		})
	})

	if deps.Websocket != nil {
		r.With(requireToken).Get("/ws", deps.Websocket.ServeHTTP)
	}
	if deps.Inspect != nil {
		r.Get("/debug/inspect", inspect(deps.Log, deps.Inspect))
	}
	return r
}

func health(nodeID string, monitoring *observability.MonitoringManager) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		respondOK(w, http.StatusOK, envelope{
			"status": "ok",
			"node":   nodeID,
			"stats":  monitoring.Snapshot(),
		})
	}
}

func inspect(log *slog.Logger, inspector Inspector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = "msg:"
		}
		rows, err := inspector(prefix, 500)
		if err != nil {
			respondFailure(log, w, r, err)
			return
		}
		respondOK(w, http.StatusOK, envelope{"prefix": prefix, "rows": rows})
	}
}
