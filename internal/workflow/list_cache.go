package workflow

import (
	"sync"
	"time"

	"github.com/example/roombook/internal/api"
)

// listCache stores recently fetched booking lists so repeated renders of the
// same view do not re-query while nothing changed. Any successful mutation
// invalidates the whole cache: stale status display after an acknowledged
// mutation is the one thing this layer exists to prevent.
type listCache struct {
	mu      sync.RWMutex
	now     func() time.Time
	ttl     time.Duration
	entries map[string]listCacheEntry

	// generation counts invalidations. A fetch captures it before going to
	// the network and hands it back to Store, so a fetch that was already in
	// flight when a mutation invalidated the cache cannot repopulate it with
	// its pre-mutation snapshot.
	generation uint64
}

type listCacheEntry struct {
	bookings  []api.Booking
	expiresAt time.Time
}

func newListCache(ttl time.Duration, now func() time.Time) *listCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if now == nil {
		now = time.Now
	}
	return &listCache{
		now:     now,
		ttl:     ttl,
		entries: make(map[string]listCacheEntry),
	}
}

func (c *listCache) Get(key string) ([]api.Booking, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return cloneBookings(entry.bookings), true
}

// Generation reports the current invalidation generation. Fetchers capture it
// before calling the server and pass it to Store.
func (c *listCache) Generation() uint64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// Store records a fetched list unless the cache was invalidated after
// generation was captured, in which case the snapshot is discarded.
func (c *listCache) Store(key string, generation uint64, bookings []api.Booking) {
	if c == nil {
		return
	}
	cloned := cloneBookings(bookings)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		return
	}
	c.entries[key] = listCacheEntry{bookings: cloned, expiresAt: expiry}
}

func (c *listCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.generation++
	c.entries = make(map[string]listCacheEntry)
	c.mu.Unlock()
}

func cloneBookings(bookings []api.Booking) []api.Booking {
	if len(bookings) == 0 {
		return nil
	}
	out := make([]api.Booking, len(bookings))
	copy(out, bookings)
	return out
}
