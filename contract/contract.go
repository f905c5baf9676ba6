//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"huddle/domain"
	"huddle/domain/event"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging by the supervisor, so workers don't need to name themselves.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is the outbound side of one connection.
// Consume must not block: a full or closed sink returns an error and the event is lost for it.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

type IRegistry interface {
	Register(sessionID string) domain.Connection
	BindIdentity(sessionID, userID string, groupID domain.GroupID, displayName string) (domain.Connection, error)
	Lookup(sessionID string) (domain.Connection, error)
	Remove(sessionID string) (domain.Connection, bool)
	Count() int
}

type IRouter interface {
	Attach(sessionID string, sink EventSink)
	Detach(sessionID string)
	Subscribe(sessionID string, groupID domain.GroupID)
	Unsubscribe(sessionID string, groupID domain.GroupID)
	Broadcast(ctx context.Context, groupID domain.GroupID, e event.DomainEvent)
	BroadcastExcept(ctx context.Context, groupID domain.GroupID, excludeSessionID string, e event.DomainEvent)
	BroadcastGlobal(ctx context.Context, e event.DomainEvent)
	Members(groupID domain.GroupID) []string
}

// Relay carries local broadcasts to the other nodes of a cluster.
type Relay interface {
	Publish(ctx context.Context, groupID domain.GroupID, e event.DomainEvent) error
}

// MessageStore persists chat messages.
type MessageStore interface {
	CreateMessage(ctx context.Context, groupID domain.GroupID, senderID, content string,
		messageType domain.MessageType, isAnonymous bool) (domain.Message, error)
}

// PresenceStore persists the online flag of a user.
type PresenceStore interface {
	SetUserOnline(ctx context.Context, userID string, online bool) error
}

// UserDirectory resolves a user projection, nil when the user doesn't exist.
type UserDirectory interface {
	GetUser(ctx context.Context, userID string) (*domain.UserProjection, error)
}

// GroupDirectory resolves a stored group, ErrGroupNotFound when it doesn't exist.
type GroupDirectory interface {
	GetGroup(ctx context.Context, groupID domain.GroupID) (domain.Group, error)
}

// ContentFilter rewrites message content before it is stored.
type ContentFilter interface {
	Censor(content string) string
}
