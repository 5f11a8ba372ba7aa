package api

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredential is returned when a login attempt is refused or an
	// issued token cannot be decoded.
	ErrInvalidCredential = errors.New("api: invalid credential")
	// ErrAuthorizationExpired is returned when the server no longer accepts
	// the session token. The session must fall back to the public view.
	ErrAuthorizationExpired = errors.New("api: authorization expired")
	// ErrTransitionRejected is returned when a booking status mutation is
	// refused, either locally (role lacks the capability) or by the server.
	ErrTransitionRejected = errors.New("api: transition rejected")
	// ErrUnauthorized is returned when an operation requires an authenticated
	// session that is not present.
	ErrUnauthorized = errors.New("api: unauthorized")
	// ErrNotFound is returned when the requested record does not exist, e.g.
	// deleting an already-deleted booking.
	ErrNotFound = errors.New("api: not found")
)

// NetworkError wraps a transport-level failure: the request never produced an
// HTTP response the client could interpret. Includes timeouts.
type NetworkError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("network failure during %s: %v", e.Op, e.Err)
}

// Unwrap exposes the transport cause.
func (e *NetworkError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// APIError carries a non-2xx response that does not map onto a sentinel.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Message)
}

// ValidationError captures field level validation issues resolved locally,
// before any request is issued.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// Add records a field level validation error.
func (v *ValidationError) Add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// ErrorKind maps taxonomy errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrInvalidCredential):
		return "invalid_credential"
	case errors.Is(err, ErrAuthorizationExpired):
		return "authorization_expired"
	case errors.Is(err, ErrTransitionRejected):
		return "transition_rejected"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	}

	var nErr *NetworkError
	if errors.As(err, &nErr) {
		return "network"
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}
	var aErr *APIError
	if errors.As(err, &aErr) {
		return "server"
	}

	return "unexpected"
}
