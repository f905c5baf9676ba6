package transport

import (
	"net/http"
	"net/url"
	"strings"
)

// OriginPolicy decides which browser origins may open a websocket.
type OriginPolicy struct {
	allowAll bool
	allowed  map[string]struct{}
}

// NewOriginPolicy accepts "scheme://host[:port]" entries, "*" allows every origin.
// Invalid entries are returned so the caller can log them.
func NewOriginPolicy(origins []string) (OriginPolicy, []string) {
	policy := OriginPolicy{allowed: make(map[string]struct{})}
	var invalid []string
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		switch {
		case trimmed == "":
			continue
		case trimmed == "*":
			policy.allowAll = true
		default:
			normalized, ok := normalizeOrigin(trimmed)
			if !ok {
				invalid = append(invalid, origin)
				continue
			}
			policy.allowed[normalized] = struct{}{}
		}
	}
	return policy, invalid
}

// Allow accepts requests without an Origin header, they don't come from a browser.
func (p OriginPolicy) Allow(r *http.Request) bool {
	header := r.Header.Get("Origin")
	if header == "" || p.allowAll {
		return true
	}
	normalized, ok := normalizeOrigin(header)
	if !ok {
		return false
	}
	if _, exists := p.allowed[normalized]; exists {
		return true
	}
	// Same host as the server
	return strings.EqualFold(strings.TrimPrefix(normalized, schemeOf(normalized)+"://"), r.Host)
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

func schemeOf(normalized string) string {
	scheme, _, _ := strings.Cut(normalized, "://")
	return scheme
}
