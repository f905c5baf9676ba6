package runtime

import (
	"context"
	"huddle/contract"
	"huddle/domain"
	"huddle/domain/event"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
)

const defaultTypingTTL = 5 * time.Second

type typingEntry struct {
	timer *time.Timer
}

// Typing relays every typing signal to the rest of the group.
// The debounce lives in the client: repeated signals are relayed as they come,
// including a stop without a previous start. The in-memory set only lets the
// engine emit a final stop when a typing user disconnects, entries expire
// silently after ttl.
type Typing struct {
	log    *slog.Logger
	router contract.IRouter
	ttl    time.Duration

	mu     sync.Mutex
	groups map[domain.GroupID]map[string]*typingEntry // map group -> user -> entry
}

func NewTyping(log *slog.Logger, router contract.IRouter, ttl time.Duration) *Typing {
	if ttl <= 0 {
		ttl = defaultTypingTTL
	}
	return &Typing{
		log:    log,
		router: router,
		ttl:    ttl,
		groups: make(map[domain.GroupID]map[string]*typingEntry),
	}
}

// SetTyping records the signal and relays it to everyone in the group but the sender's session.
func (t *Typing) SetTyping(ctx context.Context, groupID domain.GroupID, userID, displayName, senderSessionID string, isTyping bool) {
	if isTyping {
		t.mark(groupID, userID)
	} else {
		t.unmark(groupID, userID)
	}
	t.router.BroadcastExcept(ctx, groupID, senderSessionID, event.TypingChanged{
		UserID:   userID,
		Username: displayName,
		IsTyping: isTyping,
	})
}

// Clear stops a typing burst on behalf of a user leaving the group.
// Nothing is relayed when the user was not typing.
func (t *Typing) Clear(ctx context.Context, groupID domain.GroupID, userID, displayName, sessionID string) {
	if !t.unmark(groupID, userID) {
		return
	}
	t.log.Debug("Clearing typing state on leave", "group", groupID, "user", userID)
	t.router.BroadcastExcept(ctx, groupID, sessionID, event.TypingChanged{
		UserID:   userID,
		Username: displayName,
		IsTyping: false,
	})
}

// Typing returns the users currently typing in the group.
func (t *Typing) Typing(groupID domain.GroupID) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return lo.Keys(t.groups[groupID])
}

func (t *Typing) mark(groupID domain.GroupID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	users, ok := t.groups[groupID]
	if !ok {
		users = make(map[string]*typingEntry)
		t.groups[groupID] = users
	}
	if previous, ok := users[userID]; ok {
		previous.timer.Stop()
	}
	entry := &typingEntry{}
	entry.timer = time.AfterFunc(t.ttl, func() { t.expire(groupID, userID, entry) })
	users[userID] = entry
}

// unmark reports whether the user was marked as typing.
func (t *Typing) unmark(groupID domain.GroupID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	users, ok := t.groups[groupID]
	if !ok {
		return false
	}
	entry, ok := users[userID]
	if !ok {
		return false
	}
	entry.timer.Stop()
	t.remove(groupID, userID)
	return true
}

func (t *Typing) expire(groupID domain.GroupID, userID string, entry *typingEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// A newer burst replaced this entry
	if t.groups[groupID][userID] != entry {
		return
	}
	t.remove(groupID, userID)
}

// remove must be called with t.mu held.
func (t *Typing) remove(groupID domain.GroupID, userID string) {
	users := t.groups[groupID]
	delete(users, userID)
	if len(users) == 0 {
		delete(t.groups, groupID)
	}
}
