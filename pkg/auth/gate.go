package auth

import (
	"crypto/subtle"
	"strings"

	"igproxy/pkg/errors"
)

const bearerPrefix = "Bearer "

// ParseBearer extracts the token from an Authorization header value. The
// scheme must be exactly "Bearer " and the token must not be blank. The
// token is returned as sent so that comparison stays exact.
func ParseBearer(header string) (string, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", errors.New(errors.CodeAuthRequired, "Authorization required")
	}
	token := header[len(bearerPrefix):]
	if strings.TrimSpace(token) == "" {
		return "", errors.New(errors.CodeAuthRequired, "Authorization required")
	}
	return token, nil
}

// Gate validates bearer credentials against an optional shared secret
type Gate struct {
	secret []byte
}

// NewGate creates a gate. An empty secret accepts any well-formed token.
func NewGate(secret string) *Gate {
	return &Gate{secret: []byte(secret)}
}

// Enforcing reports whether a secret is configured
func (g *Gate) Enforcing() bool {
	return len(g.secret) > 0
}

// Authenticate checks the Authorization header and returns the token
func (g *Gate) Authenticate(header string) (string, error) {
	token, err := ParseBearer(header)
	if err != nil {
		return "", err
	}

	if g.Enforcing() && subtle.ConstantTimeCompare([]byte(token), g.secret) != 1 {
		return "", errors.New(errors.CodeInvalidAPIKey, "Invalid API key")
	}

	return token, nil
}
