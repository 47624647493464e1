package ratelimit

import (
	"net/http"
	"strings"
)

// UnknownIdentity is used when a request carries neither a token nor any
// client address header
const UnknownIdentity = "unknown"

// ClientIdentity returns the key a request is counted under: the bearer
// token when present, otherwise the first forwarded client address.
func ClientIdentity(r *http.Request, token string) string {
	if token != "" {
		return token
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if first != "" {
			return first
		}
	}

	for _, header := range []string{"X-Real-IP", "CF-Connecting-IP"} {
		if v := strings.TrimSpace(r.Header.Get(header)); v != "" {
			return v
		}
	}

	return UnknownIdentity
}
