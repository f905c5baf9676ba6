package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientMessage(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{fmt.Errorf("%w: blank", ErrEmptyContent), "Message content cannot be empty"},
		{ErrContentTooLong, "Message content cannot exceed 1000 characters"},
		{ErrUnsupportedType, "Unsupported message type"},
		{ErrUnknownSender, "Unknown sender"},
		{fmt.Errorf("%w: bad json", ErrInvalidIntent), "Invalid request"},
		{ErrIdentityMismatch, "Not allowed to act on behalf of another user"},
		{ErrSessionNotJoined, "Join a group first"},
		{ErrGroupNotFound, "Group not found"},
		{fmt.Errorf("%w: connection refused", ErrPersistence), "Failed to send message"},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			require.Equal(t, tt.expected, ClientMessage(tt.err))
		})
	}
}

func TestHTTPStatus_And_Message(t *testing.T) {
	tests := []struct {
		err             error
		expectedStatus  int
		expectedMessage string
	}{
		{fmt.Errorf("%w: short", ErrInvalidRegister), http.StatusBadRequest, ErrInvalidRegister.Error()},
		{ErrUserAlreadyExists, http.StatusConflict, ErrUserAlreadyExists.Error()},
		{ErrInvalidCredentials, http.StatusUnauthorized, ErrInvalidCredentials.Error()},
		{fmt.Errorf("%w: expired", ErrInvalidToken), http.StatusUnauthorized, ErrInvalidToken.Error()},
		{ErrUserNotFound, http.StatusNotFound, ErrUserNotFound.Error()},
		{ErrGroupNotFound, http.StatusNotFound, ErrGroupNotFound.Error()},
		{ErrMessageNotFound, http.StatusNotFound, ErrMessageNotFound.Error()},
		{ErrNotGroupMember, http.StatusForbidden, ErrNotGroupMember.Error()},
		{fmt.Errorf("%w: m1", ErrNotMessageSender), http.StatusForbidden, ErrNotMessageSender.Error()},
		{fmt.Errorf("pq: connection reset"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			require.Equal(t, tt.expectedStatus, HTTPStatus(tt.err))
			require.Equal(t, tt.expectedMessage, HTTPMessage(tt.err))
		})
	}
}
