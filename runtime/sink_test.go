package runtime

import (
	"context"
	"fmt"
	"huddle/domain/event"
	"sync"
)

// recordingSink keeps every event it receives.
type recordingSink struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (s *recordingSink) Consume(_ context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) Events() []event.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.DomainEvent(nil), s.events...)
}

// Named returns the received events with the given wire name.
func (s *recordingSink) Named(name event.Name) []event.DomainEvent {
	var named []event.DomainEvent
	for _, e := range s.Events() {
		if e.Name() == name {
			named = append(named, e)
		}
	}
	return named
}

func (s *recordingSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

// brokenSink behaves like a client whose send queue is full.
type brokenSink struct{}

func (brokenSink) Consume(context.Context, event.DomainEvent) error {
	return fmt.Errorf("send buffer full")
}
