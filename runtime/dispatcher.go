package runtime

import (
	"context"
	stderrors "errors"
	"fmt"
	"huddle/contract"
	"huddle/domain"
	"huddle/domain/event"
	"huddle/errors"
	"sync"
)

// Dispatcher consumes the intents of one connection, one at a time, so the
// connection's own events keep their order.
type Dispatcher struct {
	mu        sync.Mutex
	engine    *Engine
	sessionID string
	userID    string
	sink      contract.EventSink
}

func (d *Dispatcher) SessionID() string { return d.sessionID }

// Dispatch applies an intent. Failures the client must see are pushed to the
// connection as an error event and returned; silently dropped signals return the
// reason too, for logging.
func (d *Dispatcher) Dispatch(ctx context.Context, intent domain.Intent) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch in := intent.(type) {
	case domain.JoinIntent:
		return d.report(ctx, d.join(ctx, in))
	case domain.SendIntent:
		return d.report(ctx, d.send(ctx, in))
	case domain.TypingIntent:
		return d.drop(d.typing(ctx, in), in)
	case domain.StatusIntent:
		return d.drop(d.status(ctx, in), in)
	case domain.DisconnectIntent:
		d.engine.disconnect(ctx, d.sessionID, in.Reason)
		return nil
	default:
		return d.report(ctx, fmt.Errorf("%w: %T", errors.ErrInvalidIntent, intent))
	}
}

// join binds the session then moves it into the group. A session already in
// another group leaves it first, it never belongs to two groups.
func (d *Dispatcher) join(ctx context.Context, in domain.JoinIntent) error {
	if err := d.check(in, in.UserID); err != nil {
		return err
	}
	previous, err := d.engine.registry.BindIdentity(d.sessionID, in.UserID, in.GroupID, in.Username)
	if err != nil {
		return err
	}

	router := d.engine.router
	if previous.GroupID != "" && previous.GroupID != in.GroupID {
		router.Unsubscribe(d.sessionID, previous.GroupID)
		d.engine.typing.Clear(ctx, previous.GroupID, previous.UserID, previous.DisplayName, d.sessionID)
		router.Broadcast(ctx, previous.GroupID, event.MemberLeft{
			UserID:   previous.UserID,
			Username: previous.DisplayName,
		})
	}
	router.Subscribe(d.sessionID, in.GroupID)

	d.engine.presence.Joined(ctx, domain.Connection{
		SessionID:   d.sessionID,
		UserID:      in.UserID,
		GroupID:     in.GroupID,
		DisplayName: in.Username,
	})
	d.engine.log.Debug("Session joined group", "session", d.sessionID, "user", in.UserID, "group", in.GroupID)
	return nil
}

func (d *Dispatcher) send(ctx context.Context, in domain.SendIntent) error {
	if err := d.check(in, in.SenderID); err != nil {
		return err
	}
	_, err := d.engine.pipeline.Send(ctx, SendRequest{
		GroupID:     in.GroupID,
		SenderID:    in.SenderID,
		Content:     in.Content,
		Type:        in.Type,
		IsAnonymous: in.IsAnonymous,
	})
	return err
}

// typing is only relayed to the group the session has joined.
// Stale clients naming another group are dropped.
func (d *Dispatcher) typing(ctx context.Context, in domain.TypingIntent) error {
	if err := d.check(in, in.UserID); err != nil {
		return err
	}
	conn, err := d.engine.registry.Lookup(d.sessionID)
	if err != nil {
		return err
	}
	if !conn.Joined() || conn.GroupID != in.GroupID {
		return fmt.Errorf("%w: %s", errors.ErrSessionNotJoined, in.GroupID)
	}
	d.engine.typing.SetTyping(ctx, conn.GroupID, conn.UserID, in.Username, d.sessionID, in.IsTyping)
	return nil
}

func (d *Dispatcher) status(ctx context.Context, in domain.StatusIntent) error {
	if err := d.check(in, in.UserID); err != nil {
		return err
	}
	d.engine.presence.SetStatus(ctx, in.UserID, in.IsOnline)
	return nil
}

// check validates the payload and makes sure the connection only speaks for
// the user it authenticated as.
func (d *Dispatcher) check(in any, claimedUserID string) error {
	if err := d.engine.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidIntent, err)
	}
	if d.userID != "" && claimedUserID != d.userID {
		return fmt.Errorf("%w: %s", errors.ErrIdentityMismatch, claimedUserID)
	}
	return nil
}

// report sends the failure to the originating connection only.
func (d *Dispatcher) report(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, errors.ErrPersistence) {
		d.engine.log.Error("Intent failed", "session", d.sessionID, "error", err)
	} else {
		d.engine.log.Debug("Intent rejected", "session", d.sessionID, "error", err)
	}
	if sinkErr := d.sink.Consume(ctx, event.Failure{Message: errors.ClientMessage(err)}); sinkErr != nil {
		d.engine.log.Debug("Error event lost", "session", d.sessionID, "error", sinkErr)
	}
	return err
}

func (d *Dispatcher) drop(err error, in domain.Intent) error {
	if err == nil {
		return nil
	}
	d.engine.log.Info("Signal dropped", "session", d.sessionID, "intent", fmt.Sprintf("%T", in), "error", err)
	return err
}
