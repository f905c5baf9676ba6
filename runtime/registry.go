package runtime

import (
	"fmt"
	"huddle/contract"
	"huddle/domain"
	"huddle/errors"
	"sync"

	"github.com/samber/lo"
)

// Registry is the single source of truth for who is connected as whom, in which group.
// It never calls the store nor fans anything out: callers orchestrate that after consulting it.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]domain.Connection // map session -> connection
}

var _ contract.IRegistry = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]domain.Connection),
	}
}

// Register records a freshly opened session with an empty identity.
// Registering a known session leaves its record untouched.
func (r *Registry) Register(sessionID string) domain.Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn, ok := r.sessions[sessionID]; ok {
		return conn
	}
	conn := domain.Connection{SessionID: sessionID}
	r.sessions[sessionID] = conn
	return conn
}

// BindIdentity attaches a user, a group and a display name to a session and returns the
// record as it was before the call, so the caller can leave the previous group.
// Rebinding overwrites group and display name but a session never changes user.
func (r *Registry) BindIdentity(sessionID, userID string, groupID domain.GroupID, displayName string) (domain.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous, ok := r.sessions[sessionID]
	if !ok {
		return domain.Connection{}, fmt.Errorf("%w: %s", errors.ErrSessionNotFound, sessionID)
	}
	if previous.UserID != "" && previous.UserID != userID {
		return previous, fmt.Errorf("%w: %s", errors.ErrIdentityMismatch, sessionID)
	}

	r.sessions[sessionID] = domain.Connection{
		SessionID:   sessionID,
		UserID:      userID,
		GroupID:     groupID,
		DisplayName: displayName,
	}
	return previous, nil
}

func (r *Registry) Lookup(sessionID string) (domain.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.sessions[sessionID]
	if !ok {
		return domain.Connection{}, fmt.Errorf("%w: %s", errors.ErrSessionNotFound, sessionID)
	}
	return conn, nil
}

// Remove deletes the session and returns what it was.
// Removing an unknown session is a no-op.
func (r *Registry) Remove(sessionID string) (domain.Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.sessions[sessionID]
	if ok {
		delete(r.sessions, sessionID)
	}
	return conn, ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Snapshot copies every record.
func (r *Registry) Snapshot() []domain.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.sessions)
}
