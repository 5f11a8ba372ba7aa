package testfixtures

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// signingSecret is the HS256 secret test tokens are signed with. The client
// never verifies signatures, so the value only needs to be stable.
var signingSecret = []byte("roombook-test-secret")

// TokenSpec describes the claims of a fixture token.
type TokenSpec struct {
	UserID    int64
	Username  string
	Role      string
	ExpiresAt time.Time
}

// SignedToken mints a JWT carrying the booking server's claim shape.
func SignedToken(t *testing.T, spec TokenSpec) string {
	t.Helper()

	if spec.UserID == 0 {
		spec.UserID = 7
	}
	if spec.Username == "" {
		spec.Username = "somsri"
	}
	if spec.Role == "" {
		spec.Role = "user"
	}
	if spec.ExpiresAt.IsZero() {
		spec.ExpiresAt = ReferenceTime().Add(24 * time.Hour)
	}

	claims := jwt.MapClaims{
		"user_id":  spec.UserID,
		"username": spec.Username,
		"role":     spec.Role,
		"exp":      spec.ExpiresAt.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingSecret)
	if err != nil {
		t.Fatalf("sign fixture token: %v", err)
	}
	return token
}

// AdminToken mints a token for an administrator expiring a day after the
// reference time.
func AdminToken(t *testing.T) string {
	t.Helper()
	return SignedToken(t, TokenSpec{UserID: 1, Username: "admin", Role: "admin"})
}
