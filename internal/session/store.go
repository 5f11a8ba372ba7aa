package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/roombook/internal/api"
	"github.com/example/roombook/internal/logging"
)

// Status is the lifecycle state of the session store.
type Status int

const (
	// StatusUninitialized means Initialize has not yet completed. Views must
	// treat this as "decision pending", never as either outcome.
	StatusUninitialized Status = iota
	// StatusUnauthenticated means there is no usable session.
	StatusUnauthenticated
	// StatusAuthenticated means a token with unexpired claims is held.
	StatusAuthenticated
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "uninitialized"
	}
}

// Vault persists the session token across process restarts. Load returns an
// empty string, not an error, when no token is stored.
type Vault interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Store owns the session lifecycle: token acquisition, claims derivation,
// expiry detection, and propagation to consumers. All writes go through one
// mutex; readers observe only committed state.
type Store struct {
	mu     sync.Mutex
	vault  Vault
	now    func() time.Time
	logger *slog.Logger

	status      Status
	token       string
	identity    Identity
	initialized bool
}

// NewStore constructs a session store over the given vault.
func NewStore(vault Vault, now func() time.Time) *Store {
	return NewStoreWithLogger(vault, now, nil)
}

// NewStoreWithLogger constructs a session store with a specified logger.
func NewStoreWithLogger(vault Vault, now func() time.Time, logger *slog.Logger) *Store {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		vault:  vault,
		now:    now,
		logger: logger,
		status: StatusUninitialized,
	}
}

func (s *Store) loggerFor(ctx context.Context, operation string) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = s.logger
	}
	return logger.With("component", "session", "operation", operation)
}

// Initialize restores any persisted session. It is idempotent: after the
// first completed call, subsequent calls return the current status without
// touching the vault. It always runs to completion; a token that fails to
// decode or is already expired leaves the store Unauthenticated with the
// vault cleared, not in an error state.
func (s *Store) Initialize(ctx context.Context) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return s.status, nil
	}
	logger := s.loggerFor(ctx, "Initialize")

	token, err := s.vault.Load(ctx)
	if err != nil {
		s.becomeUnauthenticatedLocked()
		logger.ErrorContext(ctx, "failed to read persisted token", "error", err)
		return s.status, fmt.Errorf("load persisted token: %w", err)
	}
	if token == "" {
		s.becomeUnauthenticatedLocked()
		logger.InfoContext(ctx, "no persisted session")
		return s.status, nil
	}

	identity, err := decodeIdentity(token)
	if err != nil {
		s.discardLocked(ctx, logger, "persisted token failed to decode", err)
		return s.status, nil
	}
	if identity.ExpiredAt(s.now()) {
		s.discardLocked(ctx, logger, "persisted token is expired", nil)
		return s.status, nil
	}

	s.status = StatusAuthenticated
	s.token = token
	s.identity = identity
	s.initialized = true
	logger.InfoContext(ctx, "session restored",
		"user_id", identity.UserID,
		"role", string(identity.Role),
		"expires_at", identity.ExpiresAt,
	)
	return s.status, nil
}

// Login validates and installs a freshly issued token. On decode failure or
// an already-expired expiry the vault is cleared, the store becomes
// Unauthenticated, and ErrInvalidCredential is returned so callers can
// distinguish it from a network failure.
func (s *Store) Login(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	logger := s.loggerFor(ctx, "Login")

	identity, err := decodeIdentity(token)
	if err == nil && identity.ExpiredAt(s.now()) {
		err = fmt.Errorf("%w: token is already expired", api.ErrInvalidCredential)
	}
	if err != nil {
		s.discardLocked(ctx, logger, "rejected credential", err)
		return err
	}

	s.status = StatusAuthenticated
	s.token = token
	s.identity = identity
	s.initialized = true

	if err := s.vault.Save(ctx, token); err != nil {
		// The in-memory session stays valid; only restarts lose it.
		logger.ErrorContext(ctx, "failed to persist token", "error", err)
		return fmt.Errorf("persist token: %w", err)
	}
	logger.InfoContext(ctx, "session established",
		"user_id", identity.UserID,
		"role", string(identity.Role),
		"expires_at", identity.ExpiresAt,
	)
	return nil
}

// Logout clears the persisted and in-memory session. The state transition to
// Unauthenticated happens even when the vault write fails.
func (s *Store) Logout(ctx context.Context) error {
	return s.clear(ctx, "Logout", "session ended")
}

// Invalidate reacts to a server-side authorization failure (401): the local
// session is torn down exactly as on logout so the UI returns to the public
// view.
func (s *Store) Invalidate(ctx context.Context) error {
	return s.clear(ctx, "Invalidate", "session invalidated by server")
}

func (s *Store) clear(ctx context.Context, operation, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	logger := s.loggerFor(ctx, operation)

	s.becomeUnauthenticatedLocked()
	if err := s.vault.Clear(ctx); err != nil {
		logger.ErrorContext(ctx, "failed to clear persisted token", "error", err)
		return fmt.Errorf("clear persisted token: %w", err)
	}
	logger.InfoContext(ctx, message)
	return nil
}

// Status returns the committed lifecycle state.
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Identity returns the derived claims and whether a session is present.
func (s *Store) Identity() (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity, s.status == StatusAuthenticated
}

// Token implements api.TokenSource.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusAuthenticated {
		return ""
	}
	return s.token
}

func (s *Store) becomeUnauthenticatedLocked() {
	s.status = StatusUnauthenticated
	s.token = ""
	s.identity = Identity{}
	s.initialized = true
}

func (s *Store) discardLocked(ctx context.Context, logger *slog.Logger, message string, cause error) {
	s.becomeUnauthenticatedLocked()
	if err := s.vault.Clear(ctx); err != nil {
		logger.ErrorContext(ctx, "failed to clear persisted token", "error", err)
	}
	if cause != nil {
		logger.WarnContext(ctx, message, "error", cause)
		return
	}
	logger.WarnContext(ctx, message)
}
