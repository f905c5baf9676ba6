// Package domain contains core concepts of the chat system.
// This file defines Message entities and related rules.
// Messages are immutable once persisted.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxContentLength is counted in runes, after trimming.
const MaxContentLength = 1000

// AnonymousLabel replaces the sender name of anonymous messages.
const AnonymousLabel = "Anonymous"

type MessageType string

const (
	TEXT   MessageType = "TEXT"
	IMAGE  MessageType = "IMAGE"
	FILE   MessageType = "FILE"
	SYSTEM MessageType = "SYSTEM"
)

func (t MessageType) Valid() bool {
	switch t {
	case TEXT, IMAGE, FILE, SYSTEM:
		return true
	default:
		return false
	}
}

// Message represents a persisted chat message.
// IsAnonymous only masks the displayed name, SenderID always holds the real author.
type Message struct {
	ID          uuid.UUID
	GroupID     GroupID
	SenderID    string
	Content     string
	Type        MessageType
	IsAnonymous bool
	Language    string
	CreatedAt   time.Time
}
