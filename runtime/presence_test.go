package runtime

import (
	"context"
	"fmt"
	"huddle/domain"
	"huddle/domain/event"
	"huddle/mocks"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestPresence(t *testing.T) {
	alice := domain.Connection{SessionID: "s-alice", UserID: "alice", GroupID: "g1", DisplayName: "Alice"}

	tests := []struct {
		name       string
		storeErr   error
		act        func(ctx context.Context, p *Presence)
		expectCall bool
		online     bool
		bob        []event.DomainEvent
		lobby      []event.DomainEvent
	}{
		{
			name:       "Joined announces to the group",
			act:        func(ctx context.Context, p *Presence) { p.Joined(ctx, alice) },
			expectCall: true,
			online:     true,
			bob:        []event.DomainEvent{event.MemberJoined{UserID: "alice", Username: "Alice"}},
		},
		{
			name:       "Joined broadcasts even when the store fails",
			storeErr:   fmt.Errorf("disk full"),
			act:        func(ctx context.Context, p *Presence) { p.Joined(ctx, alice) },
			expectCall: true,
			online:     true,
			bob:        []event.DomainEvent{event.MemberJoined{UserID: "alice", Username: "Alice"}},
		},
		{
			name:       "Left tells the group then everyone",
			act:        func(ctx context.Context, p *Presence) { p.Left(ctx, alice) },
			expectCall: true,
			online:     false,
			bob: []event.DomainEvent{
				event.MemberLeft{UserID: "alice", Username: "Alice"},
				event.StatusChanged{UserID: "alice", IsOnline: false},
			},
			lobby: []event.DomainEvent{event.StatusChanged{UserID: "alice", IsOnline: false}},
		},
		{
			name: "Left ignores a session that never joined",
			act: func(ctx context.Context, p *Presence) {
				p.Left(ctx, domain.Connection{SessionID: "s-anon"})
			},
		},
		{
			name:       "SetStatus is global",
			act:        func(ctx context.Context, p *Presence) { p.SetStatus(ctx, "alice", true) },
			expectCall: true,
			online:     true,
			bob:        []event.DomainEvent{event.StatusChanged{UserID: "alice", IsOnline: true}},
			lobby:      []event.DomainEvent{event.StatusChanged{UserID: "alice", IsOnline: true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			ctx := context.Background()
			ctrl := gomock.NewController(t)
			store := mocks.NewMockPresenceStore(ctrl)
			router, monitoring := newTestRouter()
			presence := NewPresence(slog.Default(), store, router, monitoring)

			// Given alice and bob in g1 and someone connected outside any group
			aliceSink, bobSink, lobbySink := &recordingSink{}, &recordingSink{}, &recordingSink{}
			router.Attach("s-alice", aliceSink)
			router.Attach("s-bob", bobSink)
			router.Attach("s-lobby", lobbySink)
			router.Subscribe("s-alice", "g1")
			router.Subscribe("s-bob", "g1")

			if tt.expectCall {
				store.EXPECT().SetUserOnline(gomock.Any(), "alice", tt.online).Return(tt.storeErr).Times(1)
			}

			// When
			tt.act(ctx, presence)

			// Then
			req.Equal(tt.bob, bobSink.Events())
			req.Equal(tt.lobby, lobbySink.Events())
			req.Empty(aliceSink.Named(event.UserJoined))
			req.Empty(aliceSink.Named(event.UserLeft))
			if tt.storeErr != nil {
				req.Equal(uint64(1), monitoring.Snapshot().PresenceFailures)
			}
		})
	}
}
