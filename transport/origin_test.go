package transport

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewOriginPolicy_Reports_Invalid_Entries(t *testing.T) {
	_, invalid := NewOriginPolicy([]string{"http://localhost:3000", "", "localhost", " https://chat.example.com "})
	require.Equal(t, []string{"localhost"}, invalid)
}

func TestOriginPolicy_Allow(t *testing.T) {
	tests := []struct {
		name     string
		allowed  []string
		host     string
		origin   string
		expected bool
	}{
		{name: "no origin header", allowed: nil, host: "chat.example.com", origin: "", expected: true},
		{name: "wildcard", allowed: []string{"*"}, host: "chat.example.com", origin: "https://evil.example.org", expected: true},
		{name: "listed", allowed: []string{"http://localhost:3000"}, host: "api:3001", origin: "http://localhost:3000", expected: true},
		{name: "listed case insensitive", allowed: []string{"http://LocalHost:3000"}, host: "api:3001", origin: "HTTP://localhost:3000", expected: true},
		{name: "same host", allowed: nil, host: "chat.example.com", origin: "https://chat.example.com", expected: true},
		{name: "other port", allowed: []string{"http://localhost:3000"}, host: "api:3001", origin: "http://localhost:4000", expected: false},
		{name: "not listed", allowed: []string{"http://localhost:3000"}, host: "api:3001", origin: "https://evil.example.org", expected: false},
		{name: "garbage origin", allowed: []string{"http://localhost:3000"}, host: "api:3001", origin: "null", expected: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy, _ := NewOriginPolicy(tt.allowed)
			r := httptest.NewRequest("GET", "/ws", nil)
			r.Host = tt.host
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			require.Equal(t, tt.expected, policy.Allow(r))
		})
	}
}
