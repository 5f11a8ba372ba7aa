package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the configuration values for the booking client.
type Config struct {
	// APIBaseURL is the origin of the remote booking API, e.g.
	// "https://booking.example.org". Required.
	APIBaseURL string
	// StateDir holds the durable client state (token vault). Defaults to
	// <user config dir>/roombook.
	StateDir string
	// HTTPTimeout bounds every API request. A stalled request resolves to a
	// network error instead of hanging the UI.
	HTTPTimeout time.Duration
	// LogLevel selects the slog level for the CLI logger.
	LogLevel string
}

// fileConfig mirrors the YAML document on disk. Durations are strings so the
// file can say "30s" rather than nanosecond counts.
type fileConfig struct {
	APIBaseURL  string `yaml:"api_base_url"`
	StateDir    string `yaml:"state_dir"`
	HTTPTimeout string `yaml:"http_timeout"`
	LogLevel    string `yaml:"log_level"`
}

const defaultHTTPTimeout = 15 * time.Second

// Load reads the YAML configuration file and applies ROOMBOOK_* environment
// overrides on top of it.
//
// The file lives at $ROOMBOOK_CONFIG when set, otherwise at
// <user config dir>/roombook/config.yaml; a missing file is not an error.
// Missing required values and invalid entries are accumulated and reported
// together.
func Load() (Config, error) {
	path := strings.TrimSpace(os.Getenv("ROOMBOOK_CONFIG"))
	if path == "" {
		if base, err := os.UserConfigDir(); err == nil {
			path = filepath.Join(base, "roombook", "config.yaml")
		}
	}
	return loadFrom(path, os.Getenv)
}

func loadFrom(path string, getenv func(string) string) (Config, error) {
	cfg := Config{
		HTTPTimeout: defaultHTTPTimeout,
		LogLevel:    "info",
	}
	if base, err := os.UserConfigDir(); err == nil {
		cfg.StateDir = filepath.Join(base, "roombook")
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// Environment-only configuration is fine.
		case err != nil:
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		default:
			var file fileConfig
			if err := yaml.Unmarshal(raw, &file); err != nil {
				return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
			}
			applyFile(&cfg, file, &invalid)
		}
	}

	if v := strings.TrimSpace(getenv("ROOMBOOK_API_URL")); v != "" {
		cfg.APIBaseURL = v
	}
	if v := strings.TrimSpace(getenv("ROOMBOOK_STATE_DIR")); v != "" {
		cfg.StateDir = v
	}
	if v := strings.TrimSpace(getenv("ROOMBOOK_HTTP_TIMEOUT")); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "ROOMBOOK_HTTP_TIMEOUT")
		} else {
			cfg.HTTPTimeout = timeout
		}
	}
	if v := strings.TrimSpace(getenv("ROOMBOOK_LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}

	if cfg.APIBaseURL == "" {
		missing = append(missing, "api_base_url (or ROOMBOOK_API_URL)")
	} else if parsed, err := url.Parse(cfg.APIBaseURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		invalid = append(invalid, "api_base_url")
	}
	if cfg.StateDir == "" {
		missing = append(missing, "state_dir (or ROOMBOOK_STATE_DIR)")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required configuration is not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("configuration values are invalid: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func applyFile(cfg *Config, file fileConfig, invalid *[]string) {
	if v := strings.TrimSpace(file.APIBaseURL); v != "" {
		cfg.APIBaseURL = v
	}
	if v := strings.TrimSpace(file.StateDir); v != "" {
		cfg.StateDir = v
	}
	if v := strings.TrimSpace(file.HTTPTimeout); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil || timeout <= 0 {
			*invalid = append(*invalid, "http_timeout")
		} else {
			cfg.HTTPTimeout = timeout
		}
	}
	if v := strings.TrimSpace(file.LogLevel); v != "" {
		cfg.LogLevel = v
	}
}
