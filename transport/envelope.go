package transport

import (
	"encoding/json"
	"fmt"
	"huddle/domain"
	"huddle/domain/event"
	"huddle/errors"
)

// Client event names.
const (
	JoinGroup   = "join-group"
	SendMessage = "send-message"
	Typing      = "typing"
	UserStatus  = "user-status"
)

// Envelope is the frame exchanged on the websocket in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// DecodeIntent turns one inbound frame into an intent.
// Unknown event names and malformed payloads are ErrInvalidIntent.
func DecodeIntent(raw []byte) (domain.Intent, error) {
	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidIntent, err)
	}

	switch envelope.Event {
	case JoinGroup:
		return decodePayload[domain.JoinIntent](envelope)
	case SendMessage:
		return decodePayload[domain.SendIntent](envelope)
	case Typing:
		return decodePayload[domain.TypingIntent](envelope)
	case UserStatus:
		return decodePayload[domain.StatusIntent](envelope)
	default:
		return nil, fmt.Errorf("%w: unknown event %q", errors.ErrInvalidIntent, envelope.Event)
	}
}

// EncodeEvent wraps an outbound event in its envelope.
func EncodeEvent(e event.DomainEvent) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: string(e.Name()), Data: data})
}

func decodePayload[T domain.Intent](envelope Envelope) (domain.Intent, error) {
	var payload T
	if len(envelope.Data) == 0 {
		return nil, fmt.Errorf("%w: %s without data", errors.ErrInvalidIntent, envelope.Event)
	}
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errors.ErrInvalidIntent, envelope.Event, err)
	}
	return payload, nil
}
