package runtime

import (
	"context"
	"huddle/contract"
	"huddle/domain"
	"huddle/domain/event"
	"huddle/observability"
	"log/slog"
)

// Presence derives online/offline transitions from the connection lifecycle.
// A failed store write is logged and the broadcast still happens: live state
// wins over the durable flag.
type Presence struct {
	log        *slog.Logger
	store      contract.PresenceStore
	router     contract.IRouter
	monitoring *observability.MonitoringManager
}

func NewPresence(log *slog.Logger, store contract.PresenceStore, router contract.IRouter,
	monitoring *observability.MonitoringManager) *Presence {
	return &Presence{log: log, store: store, router: router, monitoring: monitoring}
}

// Joined marks the user online and announces it to the rest of the group.
func (p *Presence) Joined(ctx context.Context, conn domain.Connection) {
	p.persist(ctx, conn.UserID, true)
	p.router.BroadcastExcept(ctx, conn.GroupID, conn.SessionID, event.MemberJoined{
		UserID:   conn.UserID,
		Username: conn.DisplayName,
	})
}

// Left marks the user offline, tells the last group it was in, then everyone.
// Sessions that never joined have no presence and are ignored.
func (p *Presence) Left(ctx context.Context, conn domain.Connection) {
	if !conn.Joined() {
		return
	}
	p.persist(ctx, conn.UserID, false)
	p.router.BroadcastExcept(ctx, conn.GroupID, conn.SessionID, event.MemberLeft{
		UserID:   conn.UserID,
		Username: conn.DisplayName,
	})
	p.router.BroadcastGlobal(ctx, event.StatusChanged{UserID: conn.UserID, IsOnline: false})
}

// SetStatus handles an explicit status signal, independent of any group.
func (p *Presence) SetStatus(ctx context.Context, userID string, isOnline bool) {
	p.persist(ctx, userID, isOnline)
	p.router.BroadcastGlobal(ctx, event.StatusChanged{UserID: userID, IsOnline: isOnline})
}

func (p *Presence) persist(ctx context.Context, userID string, online bool) {
	if err := p.store.SetUserOnline(ctx, userID, online); err != nil {
		p.monitoring.IncrPresenceFailures()
		p.log.Warn("Presence update failed, broadcasting anyway",
			"user", userID, "online", online, "error", err)
	}
}
