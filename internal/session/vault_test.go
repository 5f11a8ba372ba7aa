package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestSQLiteVault(t *testing.T) {
	t.Parallel()

	t.Run("round trips a token", func(t *testing.T) {
		t.Parallel()

		vault, err := OpenVault(t.TempDir())
		if err != nil {
			t.Fatalf("OpenVault failed: %v", err)
		}
		defer vault.Close()

		ctx := context.Background()
		if err := vault.Save(ctx, "tok-123"); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		loaded, err := vault.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if loaded != "tok-123" {
			t.Fatalf("loaded %q, want tok-123", loaded)
		}
	})

	t.Run("empty vault loads an empty token", func(t *testing.T) {
		t.Parallel()

		vault, err := OpenVault(t.TempDir())
		if err != nil {
			t.Fatalf("OpenVault failed: %v", err)
		}
		defer vault.Close()

		loaded, err := vault.Load(context.Background())
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if loaded != "" {
			t.Fatalf("expected no token, got %q", loaded)
		}
	})

	t.Run("save replaces and clear removes", func(t *testing.T) {
		t.Parallel()

		vault, err := OpenVault(t.TempDir())
		if err != nil {
			t.Fatalf("OpenVault failed: %v", err)
		}
		defer vault.Close()

		ctx := context.Background()
		if err := vault.Save(ctx, "first"); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if err := vault.Save(ctx, "second"); err != nil {
			t.Fatalf("second Save failed: %v", err)
		}
		loaded, err := vault.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if loaded != "second" {
			t.Fatalf("loaded %q, want second", loaded)
		}

		if err := vault.Clear(ctx); err != nil {
			t.Fatalf("Clear failed: %v", err)
		}
		loaded, err = vault.Load(ctx)
		if err != nil {
			t.Fatalf("Load after Clear failed: %v", err)
		}
		if loaded != "" {
			t.Fatalf("expected no token after Clear, got %q", loaded)
		}
	})

	t.Run("token survives reopening", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		ctx := context.Background()

		vault, err := OpenVault(dir)
		if err != nil {
			t.Fatalf("OpenVault failed: %v", err)
		}
		if err := vault.Save(ctx, "persisted"); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if err := vault.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}

		reopened, err := OpenVault(dir)
		if err != nil {
			t.Fatalf("reopen failed: %v", err)
		}
		defer reopened.Close()

		loaded, err := reopened.Load(ctx)
		if err != nil {
			t.Fatalf("Load after reopen failed: %v", err)
		}
		if loaded != "persisted" {
			t.Fatalf("loaded %q, want persisted", loaded)
		}
	})

	t.Run("vault key is private to the user", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		if _, err := OpenVault(dir); err != nil {
			t.Fatalf("OpenVault failed: %v", err)
		}

		info, err := os.Stat(filepath.Join(dir, vaultKeyFile))
		if err != nil {
			t.Fatalf("stat key file: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0o600 {
			t.Fatalf("key file permissions are %o, want 600", perm)
		}
	})
}
