package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the token fields the portal reads. The signature is never
// verified locally; the API remains the authority on token validity.
type Claims struct {
	Email     string    `json:"email,omitempty"`
	Subject   string    `json:"sub,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
}

// Expired reports whether the token carries an expiry that has passed.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Inspect decodes the token payload without verifying its signature.
func Inspect(token string) (Claims, error) {
	mapClaims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mapClaims); err != nil {
		return Claims{}, fmt.Errorf("decode token: %w", err)
	}

	var c Claims
	for _, key := range []string{"email", "username", "cognito:username"} {
		if v, ok := mapClaims[key].(string); ok && v != "" {
			c.Email = v
			break
		}
	}
	if sub, err := mapClaims.GetSubject(); err == nil {
		c.Subject = sub
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c, nil
}
