package runtime

import (
	"huddle/domain"
	"huddle/errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Register_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sessionID := uuid.NewString()

	// Given a session already bound to a user
	registry.Register(sessionID)
	_, err := registry.BindIdentity(sessionID, "alice", "g1", "Alice")
	req.NoError(err)

	// When it is registered again
	conn := registry.Register(sessionID)

	// Then the record is untouched
	req.Equal("alice", conn.UserID)
	req.Equal(1, registry.Count())
}

func TestRegistry_BindIdentity_Returns_Previous_Record(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sessionID := uuid.NewString()
	registry.Register(sessionID)

	// When binding the first time
	previous, err := registry.BindIdentity(sessionID, "alice", "g1", "Alice")

	// Then the previous record has no identity
	req.NoError(err)
	req.False(previous.Joined())

	// When moving to another group
	previous, err = registry.BindIdentity(sessionID, "alice", "g2", "Alice")

	// Then the previous group is returned and the new one is stored
	req.NoError(err)
	req.Equal(domain.GroupID("g1"), previous.GroupID)
	conn, err := registry.Lookup(sessionID)
	req.NoError(err)
	req.Equal(domain.GroupID("g2"), conn.GroupID)
}

func TestRegistry_BindIdentity_Rejects_Another_User(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sessionID := uuid.NewString()
	registry.Register(sessionID)
	_, err := registry.BindIdentity(sessionID, "alice", "g1", "Alice")
	req.NoError(err)

	// When another user claims the same session
	_, err = registry.BindIdentity(sessionID, "mallory", "g1", "Mallory")

	// Then the session keeps its user
	req.ErrorIs(err, errors.ErrIdentityMismatch)
	conn, err := registry.Lookup(sessionID)
	req.NoError(err)
	req.Equal("alice", conn.UserID)
}

func TestRegistry_Unknown_Session(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	_, err := registry.Lookup("ghost")
	req.ErrorIs(err, errors.ErrSessionNotFound)

	_, err = registry.BindIdentity("ghost", "alice", "g1", "Alice")
	req.ErrorIs(err, errors.ErrSessionNotFound)

	_, ok := registry.Remove("ghost")
	req.False(ok)
}

func TestRegistry_Remove(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sessionID := uuid.NewString()
	registry.Register(sessionID)
	_, err := registry.BindIdentity(sessionID, "alice", "g1", "Alice")
	req.NoError(err)

	// When removing twice
	conn, ok := registry.Remove(sessionID)
	_, again := registry.Remove(sessionID)

	// Then only the first call returns the record
	req.True(ok)
	req.Equal("alice", conn.UserID)
	req.False(again)
	req.Zero(registry.Count())
	req.Empty(registry.Snapshot())
}
