package errors

import "fmt"

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")

	// Connection lifecycle
	ErrSessionNotFound  = fmt.Errorf("session not found")
	ErrSessionNotJoined = fmt.Errorf("session has not joined a group")
	ErrIdentityMismatch = fmt.Errorf("session is bound to another user")

	// Message validation
	ErrInvalidIntent   = fmt.Errorf("invalid intent")
	ErrEmptyContent    = fmt.Errorf("message content is empty")
	ErrContentTooLong  = fmt.Errorf("message content is too long")
	ErrUnsupportedType = fmt.Errorf("unsupported message type")
	ErrUnknownSender   = fmt.Errorf("unknown sender")
	ErrPersistence     = fmt.Errorf("persistence failure")

	// Accounts
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrGroupNotFound      = fmt.Errorf("group not found")
	ErrNotGroupMember     = fmt.Errorf("access denied, you are not a member of this group")
	ErrMessageNotFound    = fmt.Errorf("message not found")
	ErrNotMessageSender   = fmt.Errorf("access denied, you can only delete your own messages")
	ErrUserAlreadyExists  = fmt.Errorf("username or email already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid username or password")
	ErrInvalidRegister    = fmt.Errorf("invalid registration request")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrInvalidToken       = fmt.Errorf("invalid token")
)
