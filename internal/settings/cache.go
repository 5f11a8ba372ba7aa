package settings

import (
	"context"
	"log/slog"
	"sync"

	"github.com/example/roombook/internal/logging"
)

// Fetcher retrieves the site's public settings. The API client implements it.
type Fetcher interface {
	PublicSettings(ctx context.Context) (map[string]string, error)
}

// Cache holds the flat key/value site configuration fetched once per process.
// The fetch is best-effort: consumers always read through Get with a
// fallback, so a failed load degrades to defaults instead of surfacing.
type Cache struct {
	mu      sync.RWMutex
	fetcher Fetcher
	logger  *slog.Logger
	values  map[string]string
	loaded  bool
}

// NewCache constructs a settings cache over the given fetcher.
func NewCache(fetcher Fetcher) *Cache {
	return NewCacheWithLogger(fetcher, nil)
}

// NewCacheWithLogger constructs a settings cache with a specified logger.
func NewCacheWithLogger(fetcher Fetcher, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{fetcher: fetcher, logger: logger}
}

// Load fetches the settings once. After a successful load further calls are
// no-ops; after a failure the next call retries. Failures are logged, never
// returned.
func (c *Cache) Load(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return
	}

	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = c.logger
	}

	values, err := c.fetcher.PublicSettings(ctx)
	if err != nil {
		logger.WarnContext(ctx, "settings fetch failed, using defaults", "error", err)
		return
	}
	c.values = values
	c.loaded = true
}

// Get returns the value for key, or fallback when the key is absent or the
// settings never loaded.
func (c *Cache) Get(key, fallback string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if value, ok := c.values[key]; ok && value != "" {
		return value
	}
	return fallback
}

// Loaded reports whether a fetch has succeeded.
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}
