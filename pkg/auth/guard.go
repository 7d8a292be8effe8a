package auth

import (
	"crypto/subtle"
	"errors"
)

// HeaderName is the request header carrying the operator secret
const HeaderName = "X-Admin-Password"

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNotConfigured = errors.New("operator secret not configured")
)

// Guard checks operator-only operations against the shared operator secret.
// It keeps no state between calls: every request presents the secret again.
type Guard struct {
	secret []byte
}

// NewGuard creates a guard for the given operator secret. An empty secret
// means no operator secret is configured and every check fails with
// ErrNotConfigured.
func NewGuard(secret string) *Guard {
	return &Guard{
		secret: []byte(secret),
	}
}

// Configured reports whether an operator secret is set
func (g *Guard) Configured() bool {
	return len(g.secret) > 0
}

// Authorize returns nil when provided exactly matches the operator secret
func (g *Guard) Authorize(provided string) error {
	if !g.Configured() {
		return ErrNotConfigured
	}
	if provided == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(provided), g.secret) != 1 {
		return ErrUnauthorized
	}
	return nil
}
