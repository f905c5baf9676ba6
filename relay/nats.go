// Package relay spreads group broadcasts across every node of a cluster through NATS.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"huddle/domain"
	"huddle/domain/event"
	"strings"

	"github.com/nats-io/nats.go"
)

const (
	SubjectPrefix = "huddle"
	GlobalSubject = SubjectPrefix + ".global"
	AllSubjects   = SubjectPrefix + ".>"
	groupSubject  = SubjectPrefix + ".group."
)

// Publisher is satisfied by *nats.Conn.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type wireEvent struct {
	Origin string          `json:"origin"`
	Group  string          `json:"group,omitempty"`
	Event  event.Name      `json:"event"`
	Data   json.RawMessage `json:"data"`
}

// NatsRelay publishes local broadcasts with the node id so a node can ignore its own echo.
type NatsRelay struct {
	publisher Publisher
	nodeID    string
}

func NewNatsRelay(publisher Publisher, nodeID string) *NatsRelay {
	return &NatsRelay{publisher: publisher, nodeID: nodeID}
}

func (n *NatsRelay) NodeID() string { return n.nodeID }

// Publish sends to huddle.group.<id>, or huddle.global for an empty group id.
func (n *NatsRelay) Publish(_ context.Context, groupID domain.GroupID, e event.DomainEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(wireEvent{
		Origin: n.nodeID,
		Group:  string(groupID),
		Event:  e.Name(),
		Data:   data,
	})
	if err != nil {
		return err
	}
	return n.publisher.Publish(Subject(groupID), payload)
}

// Decode reads a relayed message. ok is false for this node's own messages.
func (n *NatsRelay) Decode(msg *nats.Msg) (groupID string, e event.DomainEvent, ok bool, err error) {
	var wire wireEvent
	if err := json.Unmarshal(msg.Data, &wire); err != nil {
		return "", nil, false, fmt.Errorf("invalid relayed message on %s: %w", msg.Subject, err)
	}
	if wire.Origin == n.nodeID {
		return "", nil, false, nil
	}
	e, err = event.Decode(wire.Event, wire.Data)
	if err != nil {
		return "", nil, false, err
	}
	return wire.Group, e, true, nil
}

func Subject(groupID domain.GroupID) string {
	if groupID == "" {
		return GlobalSubject
	}
	// NATS tokens can't hold dots or spaces
	token := strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_").Replace(string(groupID))
	return groupSubject + token
}
