package workers

import (
	"context"
	"huddle/domain/event"
	"huddle/relay"
	"log/slog"

	"github.com/nats-io/nats.go"
)

const relayBufferSize = 1024

// RemoteDeliverer receives the events published by the other nodes.
type RemoteDeliverer interface {
	DeliverRemote(ctx context.Context, groupID string, e event.DomainEvent)
}

// Subscriber is satisfied by *nats.Conn.
type Subscriber interface {
	ChanSubscribe(subject string, ch chan *nats.Msg) (*nats.Subscription, error)
}

// RelayWorker feeds the local router with what the other nodes broadcast.
type RelayWorker struct {
	log        *slog.Logger
	subscriber Subscriber
	relay      *relay.NatsRelay
	target     RemoteDeliverer
}

func NewRelayWorker(log *slog.Logger, subscriber Subscriber, natsRelay *relay.NatsRelay, target RemoteDeliverer) *RelayWorker {
	return &RelayWorker{log: log, subscriber: subscriber, relay: natsRelay, target: target}
}

func (w *RelayWorker) Run(ctx context.Context) error {
	msgs := make(chan *nats.Msg, relayBufferSize)
	sub, err := w.subscriber.ChanSubscribe(relay.AllSubjects, msgs)
	if err != nil {
		return err
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			w.log.Debug("Relay unsubscribe failed", "error", err)
		}
	}()
	w.log.Info("Starting relay worker", "subject", relay.AllSubjects, "node", w.relay.NodeID())

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-msgs:
			w.handle(ctx, msg)
		}
	}
}

func (w *RelayWorker) handle(ctx context.Context, msg *nats.Msg) {
	groupID, e, ok, err := w.relay.Decode(msg)
	if err != nil {
		w.log.Warn("Dropping relayed message", "subject", msg.Subject, "error", err)
		return
	}
	if !ok {
		return
	}
	w.target.DeliverRemote(ctx, groupID, e)
}
