package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/roombook/internal/api"
)

// Role is the authorization role carried in the token claims.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
	RoleUser    Role = "user"
)

// parseRole maps a claims string onto a known role. Unknown strings degrade
// to the least-privileged role rather than failing the whole token.
func parseRole(value string) Role {
	switch Role(value) {
	case RoleAdmin, RoleTeacher, RoleStudent, RoleUser:
		return Role(value)
	default:
		return RoleUser
	}
}

// Identity is the set of claims derived from a bearer token. It is the only
// identity representation consumers see; nothing outside this package decodes
// tokens.
type Identity struct {
	UserID    int64
	Username  string
	Role      Role
	ExpiresAt time.Time
}

// IsAdmin reports whether the identity may perform administrative actions.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// ExpiredAt reports whether the identity's claims are expired at the given
// instant. Expiry at exactly now counts as expired.
func (i Identity) ExpiredAt(now time.Time) bool {
	return !i.ExpiresAt.After(now)
}

// tokenClaims is the JWT payload shape issued by the booking server.
type tokenClaims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// decodeIdentity extracts identity claims from a bearer token without
// verifying the signature. The server is the authority on token validity;
// the client checks only shape and expiry.
func decodeIdentity(token string) (Identity, error) {
	claims := &tokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", api.ErrInvalidCredential, err)
	}
	if claims.UserID == 0 {
		return Identity{}, fmt.Errorf("%w: token is missing a user id", api.ErrInvalidCredential)
	}
	if claims.ExpiresAt == nil {
		return Identity{}, fmt.Errorf("%w: token is missing an expiry", api.ErrInvalidCredential)
	}
	return Identity{
		UserID:    claims.UserID,
		Username:  claims.Username,
		Role:      parseRole(claims.Role),
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
