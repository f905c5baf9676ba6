package runtime

import (
	"context"
	"huddle/contract"
	"huddle/domain"
	"huddle/domain/event"
	"huddle/observability"
	"log/slog"
	"sync"

	"github.com/samber/lo"
)

// group holds the live subscribers of one group.
// closed is set once the group has been dropped from the index, a subscriber
// holding a stale pointer must look the group up again.
type group struct {
	mu      sync.Mutex
	members map[string]contract.EventSink
	closed  bool
}

// Router maintains live group membership and fans events out.
//
// Locking is per group: the router lock only guards the group index and the
// session directory, each group serializes its own fan-out. Lock order is
// always router then group.
type Router struct {
	log        *slog.Logger
	monitoring *observability.MonitoringManager
	relay      contract.Relay

	mu       sync.RWMutex
	groups   map[domain.GroupID]*group
	sessions map[string]contract.EventSink // map session -> sink

	globalMu sync.Mutex // keeps global broadcasts in order
}

var _ contract.IRouter = (*Router)(nil)

func NewRouter(log *slog.Logger, monitoring *observability.MonitoringManager) *Router {
	return &Router{
		log:        log,
		monitoring: monitoring,
		groups:     make(map[domain.GroupID]*group),
		sessions:   make(map[string]contract.EventSink),
	}
}

// WithRelay forwards every local broadcast to the other nodes.
func (r *Router) WithRelay(relay contract.Relay) *Router {
	r.relay = relay
	return r
}

// Attach makes a session reachable by global broadcasts and eligible to subscribe.
func (r *Router) Attach(sessionID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = sink
}

func (r *Router) Detach(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}

// Subscribe adds an attached session to a group, creating the group on the fly.
func (r *Router) Subscribe(sessionID string, groupID domain.GroupID) {
	r.mu.RLock()
	sink, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		r.log.Warn("Subscribe ignored, session not attached", "session", sessionID, "group", groupID)
		return
	}

	for {
		g := r.getOrCreate(groupID)
		g.mu.Lock()
		if g.closed {
			g.mu.Unlock()
			continue
		}
		g.members[sessionID] = sink
		g.mu.Unlock()
		return
	}
}

// Unsubscribe removes a session from a group and drops the group once empty.
func (r *Router) Unsubscribe(sessionID string, groupID domain.GroupID) {
	g := r.get(groupID)
	if g == nil {
		return
	}

	g.mu.Lock()
	delete(g.members, sessionID)
	empty := len(g.members) == 0
	g.mu.Unlock()

	if !empty {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	g.mu.Lock()
	defer g.mu.Unlock()
	// Someone may have joined between the two critical sections
	if len(g.members) == 0 && r.groups[groupID] == g {
		g.closed = true
		delete(r.groups, groupID)
	}
}

// Broadcast delivers the event to every subscriber of the group, sender included.
func (r *Router) Broadcast(ctx context.Context, groupID domain.GroupID, e event.DomainEvent) {
	r.deliverToGroup(ctx, groupID, "", e)
	r.publish(ctx, groupID, e)
}

// BroadcastExcept delivers the event to every subscriber of the group but one.
func (r *Router) BroadcastExcept(ctx context.Context, groupID domain.GroupID, excludeSessionID string, e event.DomainEvent) {
	r.deliverToGroup(ctx, groupID, excludeSessionID, e)
	r.publish(ctx, groupID, e)
}

// BroadcastGlobal delivers the event to every attached session regardless of group.
func (r *Router) BroadcastGlobal(ctx context.Context, e event.DomainEvent) {
	r.deliverGlobal(ctx, e)
	r.publish(ctx, "", e)
}

// DeliverRemote hands an event received from another node to local sessions only.
// An empty group id means a global event.
func (r *Router) DeliverRemote(ctx context.Context, groupID domain.GroupID, e event.DomainEvent) {
	if groupID == "" {
		r.deliverGlobal(ctx, e)
		return
	}
	r.deliverToGroup(ctx, groupID, "", e)
}

func (r *Router) Members(groupID domain.GroupID) []string {
	g := r.get(groupID)
	if g == nil {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return lo.Keys(g.members)
}

// Groups returns the number of groups with at least one subscriber.
func (r *Router) Groups() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups)
}

// deliverToGroup pushes under the group lock so every subscriber queue
// receives the group's events in the same order.
func (r *Router) deliverToGroup(ctx context.Context, groupID domain.GroupID, excludeSessionID string, e event.DomainEvent) {
	g := r.get(groupID)
	if g == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for sessionID, sink := range g.members {
		if sessionID == excludeSessionID {
			continue
		}
		r.deliver(ctx, sessionID, sink, e)
	}
}

func (r *Router) deliverGlobal(ctx context.Context, e event.DomainEvent) {
	r.globalMu.Lock()
	defer r.globalMu.Unlock()

	r.mu.RLock()
	defer r.mu.RUnlock()
	for sessionID, sink := range r.sessions {
		r.deliver(ctx, sessionID, sink, e)
	}
}

// deliver never fails the broadcast: an unreachable subscriber is cleaned up
// later by its own disconnect path.
func (r *Router) deliver(ctx context.Context, sessionID string, sink contract.EventSink, e event.DomainEvent) {
	if err := sink.Consume(ctx, e); err != nil {
		r.monitoring.IncrDropped()
		r.log.Debug("Event dropped for subscriber", "session", sessionID, "event", e.Name(), "error", err)
		return
	}
	r.monitoring.IncrDelivered()
}

func (r *Router) publish(ctx context.Context, groupID domain.GroupID, e event.DomainEvent) {
	if r.relay == nil {
		return
	}
	if err := r.relay.Publish(ctx, groupID, e); err != nil {
		r.monitoring.IncrRelayFailures()
		r.log.Warn("Relay publish failed", "group", groupID, "event", e.Name(), "error", err)
	}
}

func (r *Router) get(groupID domain.GroupID) *group {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.groups[groupID]
}

func (r *Router) getOrCreate(groupID domain.GroupID) *group {
	if g := r.get(groupID); g != nil {
		return g
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.groups[groupID]; ok {
		return g
	}
	g := &group{members: make(map[string]contract.EventSink)}
	r.groups[groupID] = g
	return g
}
