package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestLoadFrom(t *testing.T) {
	t.Parallel()

	t.Run("applies defaults around a minimal file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "config.yaml")
		contents := "api_base_url: https://booking.example.org\n"
		if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
			t.Fatalf("write config: %v", err)
		}

		cfg, err := loadFrom(path, envMap(nil))
		if err != nil {
			t.Fatalf("loadFrom failed: %v", err)
		}
		if cfg.APIBaseURL != "https://booking.example.org" {
			t.Fatalf("unexpected base URL %q", cfg.APIBaseURL)
		}
		if cfg.HTTPTimeout != defaultHTTPTimeout {
			t.Fatalf("expected default timeout, got %s", cfg.HTTPTimeout)
		}
		if cfg.LogLevel != "info" {
			t.Fatalf("expected info level, got %q", cfg.LogLevel)
		}
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "config.yaml")
		contents := "api_base_url: https://file.example.org\nhttp_timeout: 5s\nlog_level: warn\n"
		if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
			t.Fatalf("write config: %v", err)
		}

		cfg, err := loadFrom(path, envMap(map[string]string{
			"ROOMBOOK_API_URL":      "https://env.example.org",
			"ROOMBOOK_HTTP_TIMEOUT": "45s",
		}))
		if err != nil {
			t.Fatalf("loadFrom failed: %v", err)
		}
		if cfg.APIBaseURL != "https://env.example.org" {
			t.Fatalf("expected env URL to win, got %q", cfg.APIBaseURL)
		}
		if cfg.HTTPTimeout != 45*time.Second {
			t.Fatalf("expected 45s timeout, got %s", cfg.HTTPTimeout)
		}
		if cfg.LogLevel != "warn" {
			t.Fatalf("expected file log level to survive, got %q", cfg.LogLevel)
		}
	})

	t.Run("missing file is not an error when env supplies the URL", func(t *testing.T) {
		t.Parallel()

		cfg, err := loadFrom(filepath.Join(t.TempDir(), "missing.yaml"), envMap(map[string]string{
			"ROOMBOOK_API_URL": "http://localhost:8080",
		}))
		if err != nil {
			t.Fatalf("loadFrom failed: %v", err)
		}
		if cfg.APIBaseURL != "http://localhost:8080" {
			t.Fatalf("unexpected base URL %q", cfg.APIBaseURL)
		}
	})

	t.Run("reports a missing base URL", func(t *testing.T) {
		t.Parallel()

		_, err := loadFrom(filepath.Join(t.TempDir(), "missing.yaml"), envMap(nil))
		if err == nil {
			t.Fatal("expected an error for missing api_base_url")
		}
		if !strings.Contains(err.Error(), "api_base_url") {
			t.Fatalf("error should name the missing value, got %v", err)
		}
	})

	t.Run("rejects invalid values together", func(t *testing.T) {
		t.Parallel()

		_, err := loadFrom(filepath.Join(t.TempDir(), "missing.yaml"), envMap(map[string]string{
			"ROOMBOOK_API_URL":      "not a url",
			"ROOMBOOK_HTTP_TIMEOUT": "-3s",
		}))
		if err == nil {
			t.Fatal("expected an error for invalid values")
		}
		for _, want := range []string{"api_base_url", "ROOMBOOK_HTTP_TIMEOUT"} {
			if !strings.Contains(err.Error(), want) {
				t.Fatalf("error should name %s, got %v", want, err)
			}
		}
	})
}
