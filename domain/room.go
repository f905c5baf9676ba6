package domain

import "time"

type GroupID string

// DefaultGroupName is the group every new client lands in.
const DefaultGroupName = "Fun Friday Group"

type Group struct {
	ID          GroupID
	Name        string
	Description string
	IsAnonymous bool
	CreatedAt   time.Time
}

func (g GroupID) String() string {
	return string(g)
}

// Membership records that a user belongs to a group, kept in the store.
type Membership struct {
	GroupID  GroupID
	UserID   string
	JoinedAt time.Time
}

// Member is a group member as listed by the API.
type Member struct {
	UserProjection
	JoinedAt time.Time
}
