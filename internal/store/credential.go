// Package store persists the portal credential between runs.
package store

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// unverified reads token contents without checking the signature.
var unverified = jwt.NewParser()

// Credential is the opaque Authorization header value captured from the
// portal. It is replaced wholesale on re-authentication.
type Credential struct {
	Token string
}

// Valid reports whether the credential carries a token.
func (c Credential) Valid() bool {
	return strings.TrimSpace(c.Token) != ""
}

// ExpiresAt reports the exp claim when the token is a JWT. The signature is
// not verified; the portal remains the authority on validity.
func (c Credential) ExpiresAt() (time.Time, bool) {
	raw := strings.TrimSpace(c.Token)
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	if raw == "" {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := unverified.ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// ExpiredAt reports whether the token's exp claim lies at or before now.
// Tokens without a readable exp claim never count as expired.
func (c Credential) ExpiredAt(now time.Time) bool {
	exp, ok := c.ExpiresAt()
	return ok && !now.Before(exp)
}
