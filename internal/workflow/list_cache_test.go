package workflow

import (
	"testing"
	"time"

	"github.com/example/roombook/internal/api"
	"github.com/example/roombook/internal/testfixtures"
)

func TestListCache(t *testing.T) {
	t.Parallel()

	t.Run("entries expire after the ttl", func(t *testing.T) {
		t.Parallel()

		clock := testfixtures.NewClock(time.Time{})
		cache := newListCache(30*time.Second, clock.NowFunc())
		cache.Store("manage", cache.Generation(), []api.Booking{{ID: 1}})

		clock.Advance(29 * time.Second)
		if _, ok := cache.Get("manage"); !ok {
			t.Fatal("entry expired early")
		}

		clock.Advance(2 * time.Second)
		if _, ok := cache.Get("manage"); ok {
			t.Fatal("entry survived past its ttl")
		}
	})

	t.Run("stored slices are isolated from the caller", func(t *testing.T) {
		t.Parallel()

		cache := newListCache(time.Minute, testfixtures.NewClock(time.Time{}).NowFunc())
		source := []api.Booking{{ID: 1, Status: api.StatusPending}}
		cache.Store("manage", cache.Generation(), source)
		source[0].Status = api.StatusApproved

		cached, ok := cache.Get("manage")
		if !ok {
			t.Fatal("entry missing")
		}
		if cached[0].Status != api.StatusPending {
			t.Fatal("cache shares memory with the caller's slice")
		}
	})

	t.Run("store from before an invalidation is discarded", func(t *testing.T) {
		t.Parallel()

		cache := newListCache(time.Minute, testfixtures.NewClock(time.Time{}).NowFunc())
		generation := cache.Generation()
		cache.Invalidate()
		cache.Store("manage", generation, []api.Booking{{ID: 1, Status: api.StatusPending}})

		if _, ok := cache.Get("manage"); ok {
			t.Fatal("snapshot from before the invalidation was cached")
		}

		cache.Store("manage", cache.Generation(), []api.Booking{{ID: 1, Status: api.StatusApproved}})
		cached, ok := cache.Get("manage")
		if !ok {
			t.Fatal("current-generation store was discarded")
		}
		if cached[0].Status != api.StatusApproved {
			t.Fatalf("cached status = %s, want %s", cached[0].Status, api.StatusApproved)
		}
	})

	t.Run("invalidate drops everything", func(t *testing.T) {
		t.Parallel()

		cache := newListCache(time.Minute, testfixtures.NewClock(time.Time{}).NowFunc())
		cache.Store("manage", cache.Generation(), []api.Booking{{ID: 1}})
		cache.Store("mine:7", cache.Generation(), []api.Booking{{ID: 2}})
		cache.Invalidate()

		if _, ok := cache.Get("manage"); ok {
			t.Fatal("manage entry survived invalidation")
		}
		if _, ok := cache.Get("mine:7"); ok {
			t.Fatal("owner entry survived invalidation")
		}
	})
}
