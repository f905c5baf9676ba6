package event

import (
	"encoding/json"
	"fmt"
	"huddle/domain"
	"time"
)

type Name string

const (
	NewMessage Name = "new-message"
	UserJoined Name = "user-joined"
	UserLeft   Name = "user-left"
	UserTyping Name = "user-typing"
	UserStatus Name = "user-status"
	Error      Name = "error"
)

// DomainEvent is anything pushed to a connection.
// Field tags are the wire payload.
type DomainEvent interface {
	Name() Name
}

type Sender struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	IsOnline bool   `json:"isOnline"`
}

type MessagePosted struct {
	ID          string             `json:"id"`
	Content     string             `json:"content"`
	Type        domain.MessageType `json:"type"`
	CreatedAt   time.Time          `json:"createdAt"`
	IsAnonymous bool               `json:"isAnonymous"`
	Sender      Sender             `json:"sender"`
}

type MemberJoined struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type MemberLeft struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type TypingChanged struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

type StatusChanged struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

type Failure struct {
	Message string `json:"message"`
}

func (MessagePosted) Name() Name { return NewMessage }
func (MemberJoined) Name() Name  { return UserJoined }
func (MemberLeft) Name() Name    { return UserLeft }
func (TypingChanged) Name() Name { return UserTyping }
func (StatusChanged) Name() Name { return UserStatus }
func (Failure) Name() Name       { return Error }

// NewMessagePosted projects a persisted message for fan-out.
// The stored sender id is kept, only the displayed username is masked.
func NewMessagePosted(m domain.Message, sender domain.UserProjection) MessagePosted {
	username := sender.Username
	if m.IsAnonymous {
		username = domain.AnonymousLabel
	}
	return MessagePosted{
		ID:          m.ID.String(),
		Content:     m.Content,
		Type:        m.Type,
		CreatedAt:   m.CreatedAt,
		IsAnonymous: m.IsAnonymous,
		Sender: Sender{
			ID:       sender.ID,
			Username: username,
			Avatar:   sender.Avatar,
			IsOnline: sender.IsOnline,
		},
	}
}

// Decode rebuilds an event from its wire name and payload.
func Decode(name Name, data []byte) (DomainEvent, error) {
	switch name {
	case NewMessage:
		return decode[MessagePosted](data)
	case UserJoined:
		return decode[MemberJoined](data)
	case UserLeft:
		return decode[MemberLeft](data)
	case UserTyping:
		return decode[TypingChanged](data)
	case UserStatus:
		return decode[StatusChanged](data)
	case Error:
		return decode[Failure](data)
	default:
		return nil, fmt.Errorf("unknown event %q", name)
	}
}

func decode[T DomainEvent](data []byte) (DomainEvent, error) {
	var e T
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return e, nil
}
