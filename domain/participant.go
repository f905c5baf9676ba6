// Package domain contains core concepts of the chat system.
// This file defines Connection and user projections.
// No runtime, network, or UI logic should be added here.
package domain

// Connection is one live transport session.
// UserID and GroupID stay empty until the session joins a group.
type Connection struct {
	SessionID   string
	UserID      string
	GroupID     GroupID
	DisplayName string
}

func (c Connection) Joined() bool {
	return c.UserID != "" && c.GroupID != ""
}

// UserProjection is the public view of a user attached to outgoing events.
type UserProjection struct {
	ID       string
	Username string
	Avatar   string
	IsOnline bool
}
