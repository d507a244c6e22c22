// Package session reads identity hints from the stored backend session.
package session

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"gitlab.com/tozd/go/errors"

	"github.com/example/attend/internal/ports/secondary"
)

// phoneClaims are checked in order.
var phoneClaims = []string{"phone", "phone_number", "mobile"}

// JWTClaims reads claims from the backend's bearer token. The signature is
// not verified: the backend verifies it, the device only needs the hint.
type JWTClaims struct {
	parser *jwt.Parser
}

// NewJWTClaims creates a claims reader.
func NewJWTClaims() *JWTClaims {
	return &JWTClaims{parser: jwt.NewParser()}
}

// SubjectPhone returns the phone claim of token, or "" if none is present.
func (c *JWTClaims) SubjectPhone(token string) (string, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return "", nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := c.parser.ParseUnverified(token, claims); err != nil {
		return "", errors.Errorf("failed to parse session token: %w", err)
	}

	for _, key := range phoneClaims {
		if v, ok := claims[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), nil
		}
	}
	return "", nil
}

var _ secondary.SessionClaims = (*JWTClaims)(nil)
