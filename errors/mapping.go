package errors

import (
	stderrors "errors"
	"net/http"
)

// ClientMessage turns an engine error into the text sent back in an error event.
// Internal details never reach the client.
func ClientMessage(err error) string {
	switch {
	case stderrors.Is(err, ErrEmptyContent):
		return "Message content cannot be empty"
	case stderrors.Is(err, ErrContentTooLong):
		return "Message content cannot exceed 1000 characters"
	case stderrors.Is(err, ErrUnsupportedType):
		return "Unsupported message type"
	case stderrors.Is(err, ErrUnknownSender):
		return "Unknown sender"
	case stderrors.Is(err, ErrInvalidIntent):
		return "Invalid request"
	case stderrors.Is(err, ErrIdentityMismatch):
		return "Not allowed to act on behalf of another user"
	case stderrors.Is(err, ErrSessionNotJoined):
		return "Join a group first"
	case stderrors.Is(err, ErrGroupNotFound):
		return "Group not found"
	default:
		return "Failed to send message"
	}
}

// HTTPStatus maps account errors onto HTTP status codes.
func HTTPStatus(err error) int {
	switch {
	case stderrors.Is(err, ErrInvalidRegister):
		return http.StatusBadRequest
	case stderrors.Is(err, ErrUserAlreadyExists):
		return http.StatusConflict
	case stderrors.Is(err, ErrInvalidCredentials), stderrors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	case stderrors.Is(err, ErrNotGroupMember), stderrors.Is(err, ErrNotMessageSender):
		return http.StatusForbidden
	case stderrors.Is(err, ErrUserNotFound), stderrors.Is(err, ErrGroupNotFound), stderrors.Is(err, ErrMessageNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

var publicErrors = []error{
	ErrInvalidRegister,
	ErrUserAlreadyExists,
	ErrInvalidCredentials,
	ErrInvalidToken,
	ErrUserNotFound,
	ErrGroupNotFound,
	ErrNotGroupMember,
	ErrMessageNotFound,
	ErrNotMessageSender,
}

// HTTPMessage is the error text of an API response. Only account and chat sentinels are shown as is.
func HTTPMessage(err error) string {
	for _, public := range publicErrors {
		if stderrors.Is(err, public) {
			return public.Error()
		}
	}
	return "Internal server error"
}
