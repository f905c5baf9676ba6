package domain

// Intent is everything a connection can ask the engine to do.
// The set is closed: JoinIntent, SendIntent, TypingIntent, StatusIntent and DisconnectIntent.
type Intent interface {
	isIntent()
}

type JoinIntent struct {
	GroupID  GroupID `json:"groupId" validate:"required"`
	UserID   string  `json:"userId" validate:"required"`
	Username string  `json:"username" validate:"required"`
}

type SendIntent struct {
	Content     string      `json:"content"`
	SenderID    string      `json:"senderId" validate:"required"`
	GroupID     GroupID     `json:"groupId" validate:"required"`
	Type        MessageType `json:"type"`
	IsAnonymous bool        `json:"isAnonymous"`
}

type TypingIntent struct {
	GroupID  GroupID `json:"groupId" validate:"required"`
	UserID   string  `json:"userId" validate:"required"`
	Username string  `json:"username"`
	IsTyping bool    `json:"isTyping"`
}

type StatusIntent struct {
	UserID   string `json:"userId" validate:"required"`
	IsOnline bool   `json:"isOnline"`
}

// DisconnectIntent covers both a clean close and a broken transport.
type DisconnectIntent struct {
	Reason string
}

func (JoinIntent) isIntent()       {}
func (SendIntent) isIntent()       {}
func (TypingIntent) isIntent()     {}
func (StatusIntent) isIntent()     {}
func (DisconnectIntent) isIntent() {}
