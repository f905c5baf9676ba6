// Package projection builds local timelines from observed events.
// Handles ordering, deduplication, and the members seen in the group.
// Does not emit events or interact with the network.
package projection

import (
	"context"
	"huddle/domain/event"
	"slices"
	"sync"

	"github.com/samber/lo"
)

// Timeline is the client-side view of one group. It is an EventSink, so it
// can be fed by a websocket reader or plugged directly into the engine.
type Timeline struct {
	Owner string

	mu       sync.RWMutex
	messages []event.MessagePosted
	seen     map[string]struct{}
	members  map[string]string
	typing   map[string]string
	online   map[string]bool
}

func NewTimeline(owner string) *Timeline {
	return &Timeline{
		Owner:   owner,
		seen:    make(map[string]struct{}),
		members: make(map[string]string),
		typing:  make(map[string]string),
		online:  make(map[string]bool),
	}
}

// Load merges a fetched history, messages already seen live are skipped.
func (t *Timeline) Load(history []event.MessagePosted) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, m := range history {
		t.appendMessage(m)
	}
}

func (t *Timeline) Consume(_ context.Context, e event.DomainEvent) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch evt := e.(type) {
	case event.MessagePosted:
		t.appendMessage(evt)
		delete(t.typing, evt.Sender.ID)
	case event.MemberJoined:
		t.members[evt.UserID] = evt.Username
		t.online[evt.UserID] = true
	case event.MemberLeft:
		delete(t.members, evt.UserID)
		delete(t.typing, evt.UserID)
	case event.TypingChanged:
		if evt.IsTyping {
			t.typing[evt.UserID] = evt.Username
		} else {
			delete(t.typing, evt.UserID)
		}
	case event.StatusChanged:
		t.online[evt.UserID] = evt.IsOnline
	}
	return nil
}

// appendMessage keeps messages ordered by creation time, ties keep arrival order.
func (t *Timeline) appendMessage(m event.MessagePosted) {
	if _, ok := t.seen[m.ID]; ok {
		return
	}
	t.seen[m.ID] = struct{}{}
	i := len(t.messages)
	for i > 0 && t.messages[i-1].CreatedAt.After(m.CreatedAt) {
		i--
	}
	t.messages = slices.Insert(t.messages, i, m)
}

func (t *Timeline) Messages() []event.MessagePosted {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.messages)
}

// Last returns at most n of the newest messages, oldest first.
func (t *Timeline) Last(n int) []event.MessagePosted {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if n >= len(t.messages) {
		return slices.Clone(t.messages)
	}
	return slices.Clone(t.messages[len(t.messages)-n:])
}

// Members returns the names of the users seen joining and not yet gone, sorted.
func (t *Timeline) Members() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return sortedNames(t.members)
}

func (t *Timeline) Typing() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return sortedNames(t.typing)
}

// IsOnline reports the last status seen for a user.
func (t *Timeline) IsOnline(userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.online[userID]
}

func sortedNames(users map[string]string) []string {
	names := lo.Values(users)
	slices.Sort(names)
	return names
}
