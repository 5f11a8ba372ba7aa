package session

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/nacl/secretbox"
	_ "modernc.org/sqlite"
)

// tokenKey is the single well-known key the session token is stored under.
// No other client state is persisted.
const tokenKey = "session_token"

const (
	vaultDBFile  = "state.db"
	vaultKeyFile = "vault.key"
	nonceSize    = 24
	keySize      = 32
)

// SQLiteVault stores the session token in a local sqlite database, sealed
// with a per-installation secretbox key kept beside it with 0600 permissions.
type SQLiteVault struct {
	db  *sql.DB
	key [keySize]byte
}

// OpenVault opens (creating if necessary) the vault under dir.
func OpenVault(dir string) (*SQLiteVault, error) {
	if dir == "" {
		return nil, fmt.Errorf("vault directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	key, err := loadOrCreateKey(filepath.Join(dir, vaultKeyFile))
	if err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.Join(dir, vaultDBFile))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS client_state (
		key   TEXT PRIMARY KEY,
		value BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare state database: %w", err)
	}

	vault := &SQLiteVault{db: db}
	copy(vault.key[:], key)
	return vault, nil
}

// Load returns the stored token, or an empty string when none is persisted.
func (v *SQLiteVault) Load(ctx context.Context) (string, error) {
	var sealed []byte
	err := v.db.QueryRowContext(ctx, `SELECT value FROM client_state WHERE key = ?`, tokenKey).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}

	if len(sealed) < nonceSize {
		return "", fmt.Errorf("stored token is corrupt")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &v.key)
	if !ok {
		return "", fmt.Errorf("stored token failed to unseal")
	}
	return string(plain), nil
}

// Save seals and stores the token under the well-known key, replacing any
// previous value.
func (v *SQLiteVault) Save(ctx context.Context, token string) error {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(token), &nonce, &v.key)

	if _, err := v.db.ExecContext(ctx,
		`INSERT INTO client_state (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		tokenKey, sealed,
	); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// Clear removes the stored token. Clearing an empty vault is not an error.
func (v *SQLiteVault) Clear(ctx context.Context) error {
	if _, err := v.db.ExecContext(ctx, `DELETE FROM client_state WHERE key = ?`, tokenKey); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (v *SQLiteVault) Close() error {
	return v.db.Close()
}

func loadOrCreateKey(path string) ([]byte, error) {
	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		if len(existing) != keySize {
			return nil, fmt.Errorf("vault key at %s has unexpected length %d", path, len(existing))
		}
		return existing, nil
	case errors.Is(err, os.ErrNotExist):
		key := make([]byte, keySize)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate vault key: %w", err)
		}
		if err := os.WriteFile(path, key, 0o600); err != nil {
			return nil, fmt.Errorf("write vault key: %w", err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("read vault key: %w", err)
	}
}
