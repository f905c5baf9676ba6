// Package runtime holds the live state of the chat: who is connected, who is in which group,
// and how events reach them. Persistence stays behind the contract interfaces.
package runtime

import (
	"context"
	"huddle/contract"
	"huddle/domain"
	"huddle/domain/event"
	"huddle/observability"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// Engine owns the connection registry, the router and the components built on them.
// It is created at service start and stopped at shutdown, never shared through globals.
type Engine struct {
	log        *slog.Logger
	registry   *Registry
	router     *Router
	presence   *Presence
	pipeline   *Pipeline
	typing     *Typing
	monitoring *observability.MonitoringManager
	validate   *validator.Validate

	mu          sync.Mutex
	dispatchers map[string]*Dispatcher // map session -> dispatcher
}

type EngineStores struct {
	Messages contract.MessageStore
	Presence contract.PresenceStore
	Users    contract.UserDirectory
	// Optional, every group id is accepted without it
	Groups   contract.GroupDirectory
}

type EngineOptions struct {
	Relay     contract.Relay
	Filter    contract.ContentFilter
	TypingTTL time.Duration
}

func NewEngine(log *slog.Logger, stores EngineStores, monitoring *observability.MonitoringManager, opts EngineOptions) *Engine {
	registry := NewRegistry()
	router := NewRouter(log, monitoring)
	if opts.Relay != nil {
		router.WithRelay(opts.Relay)
	}
	pipeline := NewPipeline(log, stores.Messages, stores.Users, router, monitoring)
	if opts.Filter != nil {
		pipeline.WithFilter(opts.Filter)
	}
	if stores.Groups != nil {
		pipeline.WithGroups(stores.Groups)
	}

	e := &Engine{
		log:         log,
		registry:    registry,
		router:      router,
		presence:    NewPresence(log, stores.Presence, router, monitoring),
		pipeline:    pipeline,
		typing:      NewTyping(log, router, opts.TypingTTL),
		monitoring:  monitoring,
		validate:    validator.New(),
		dispatchers: make(map[string]*Dispatcher),
	}
	monitoring.WithGauges(func() (int, int) {
		return registry.Count(), router.Groups()
	})
	return e
}

// Connect registers a new session and returns the dispatcher that will consume its intents.
// userID is the identity resolved at handshake, empty when the transport doesn't authenticate.
func (e *Engine) Connect(sessionID, userID string, sink contract.EventSink) *Dispatcher {
	e.registry.Register(sessionID)
	e.router.Attach(sessionID, sink)
	d := &Dispatcher{engine: e, sessionID: sessionID, userID: userID, sink: sink}
	e.mu.Lock()
	e.dispatchers[sessionID] = d
	e.mu.Unlock()
	e.log.Debug("Session connected", "session", sessionID, "user", userID)
	return d
}

// Stop runs the disconnect cleanup for every live session.
// Each cleanup goes through the session's dispatcher, after any intent still in flight.
func (e *Engine) Stop(ctx context.Context) {
	e.mu.Lock()
	dispatchers := lo.Values(e.dispatchers)
	e.mu.Unlock()

	for _, d := range dispatchers {
		_ = d.Dispatch(ctx, domain.DisconnectIntent{Reason: "shutdown"})
	}
	e.log.Info("Engine stopped", "sessions", len(dispatchers))
}

func (e *Engine) Registry() *Registry { return e.registry }

func (e *Engine) Router() *Router { return e.router }

func (e *Engine) Typing() *Typing { return e.typing }

// DeliverRemote is the entry point of events relayed by other nodes.
func (e *Engine) DeliverRemote(ctx context.Context, groupID string, evt event.DomainEvent) {
	e.router.DeliverRemote(ctx, domain.GroupID(groupID), evt)
}

// disconnect is the single cleanup path, for clean closes and broken transports alike.
// It is idempotent: a second call finds nothing in the registry.
func (e *Engine) disconnect(ctx context.Context, sessionID, reason string) {
	e.mu.Lock()
	delete(e.dispatchers, sessionID)
	e.mu.Unlock()

	conn, ok := e.registry.Remove(sessionID)
	if !ok {
		return
	}
	e.router.Detach(sessionID)
	if conn.GroupID != "" {
		e.router.Unsubscribe(sessionID, conn.GroupID)
		e.typing.Clear(ctx, conn.GroupID, conn.UserID, conn.DisplayName, sessionID)
	}
	e.presence.Left(ctx, conn)
	e.log.Debug("Session disconnected", "session", sessionID, "user", conn.UserID, "reason", reason)
}
