package workers

import (
	"context"
	"huddle/domain/event"
	"huddle/relay"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
)

// capturePublisher records what a node publishes, as NATS would carry it.
type capturePublisher struct {
	msgs []*nats.Msg
}

func (p *capturePublisher) Publish(subject string, data []byte) error {
	p.msgs = append(p.msgs, &nats.Msg{Subject: subject, Data: data})
	return nil
}

type fakeSubscriber struct {
	mu      sync.Mutex
	subject string
	ch      chan *nats.Msg
}

func (s *fakeSubscriber) ChanSubscribe(subject string, ch chan *nats.Msg) (*nats.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subject = subject
	s.ch = ch
	return &nats.Subscription{}, nil
}

func (s *fakeSubscriber) channel() chan *nats.Msg {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch
}

type delivery struct {
	groupID string
	event   event.DomainEvent
}

type recordingDeliverer struct {
	mu         sync.Mutex
	deliveries []delivery
}

func (d *recordingDeliverer) DeliverRemote(_ context.Context, groupID string, e event.DomainEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deliveries = append(d.deliveries, delivery{groupID: groupID, event: e})
}

func (d *recordingDeliverer) Deliveries() []delivery {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]delivery(nil), d.deliveries...)
}

func TestRelayWorker_Delivers_Other_Nodes_Only(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	// Given node-2 published a group event and node-1 a global one
	wire := &capturePublisher{}
	req.NoError(relay.NewNatsRelay(wire, "node-2").Publish(ctx, "g1", event.MemberJoined{UserID: "bob", Username: "bob"}))
	req.NoError(relay.NewNatsRelay(wire, "node-1").Publish(ctx, "", event.StatusChanged{UserID: "alice", IsOnline: true}))

	target := &recordingDeliverer{}
	worker := NewRelayWorker(slog.Default(), &fakeSubscriber{}, relay.NewNatsRelay(wire, "node-1"), target)

	// When node-1 receives both
	for _, msg := range wire.msgs {
		worker.handle(ctx, msg)
	}
	// And garbage
	worker.handle(ctx, &nats.Msg{Subject: "huddle.global", Data: []byte("not json")})

	// Then only the foreign event is delivered
	req.Equal([]delivery{{groupID: "g1", event: event.MemberJoined{UserID: "bob", Username: "bob"}}}, target.Deliveries())
}

func TestRelayWorker_Run(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wire := &capturePublisher{}
	req.NoError(relay.NewNatsRelay(wire, "node-2").Publish(ctx, "", event.StatusChanged{UserID: "bob", IsOnline: false}))

	subscriber := &fakeSubscriber{}
	target := &recordingDeliverer{}
	worker := NewRelayWorker(slog.Default(), subscriber, relay.NewNatsRelay(wire, "node-1"), target)

	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()
	req.Eventually(func() bool { return subscriber.channel() != nil }, time.Second, 5*time.Millisecond)
	req.Equal(relay.AllSubjects, subscriber.subject)

	subscriber.channel() <- wire.msgs[0]
	req.Eventually(func() bool { return len(target.Deliveries()) == 1 }, time.Second, 5*time.Millisecond)
	req.Equal("", target.Deliveries()[0].groupID)

	cancel()
	req.NoError(<-done)
}
