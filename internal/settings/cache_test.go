package settings

import (
	"context"
	"errors"
	"testing"
)

type fetcherStub struct {
	values map[string]string
	err    error
	calls  int
}

func (f *fetcherStub) PublicSettings(ctx context.Context) (map[string]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.values, nil
}

func TestCache_Load(t *testing.T) {
	t.Parallel()

	t.Run("load succeeds once and never refetches", func(t *testing.T) {
		t.Parallel()

		fetcher := &fetcherStub{values: map[string]string{"site_name": "tunorth"}}
		cache := NewCache(fetcher)

		cache.Load(context.Background())
		cache.Load(context.Background())

		if fetcher.calls != 1 {
			t.Fatalf("expected a single fetch, got %d", fetcher.calls)
		}
		if !cache.Loaded() {
			t.Fatal("cache should report loaded")
		}
		if got := cache.Get("site_name", "Room Booking"); got != "tunorth" {
			t.Fatalf("Get returned %q", got)
		}
	})

	t.Run("failed load degrades to defaults and retries next time", func(t *testing.T) {
		t.Parallel()

		fetcher := &fetcherStub{err: errors.New("boom")}
		cache := NewCache(fetcher)

		cache.Load(context.Background())
		if cache.Loaded() {
			t.Fatal("a failed fetch must not mark the cache loaded")
		}
		if got := cache.Get("site_name", "Room Booking"); got != "Room Booking" {
			t.Fatalf("expected the fallback, got %q", got)
		}

		fetcher.err = nil
		fetcher.values = map[string]string{"site_name": "tunorth"}
		cache.Load(context.Background())
		if got := cache.Get("site_name", "Room Booking"); got != "tunorth" {
			t.Fatalf("expected the retried value, got %q", got)
		}
		if fetcher.calls != 2 {
			t.Fatalf("expected 2 fetches, got %d", fetcher.calls)
		}
	})
}

func TestCache_Get(t *testing.T) {
	t.Parallel()

	fetcher := &fetcherStub{values: map[string]string{
		"site_name":   "tunorth",
		"theme_color": "",
	}}
	cache := NewCache(fetcher)
	cache.Load(context.Background())

	if got := cache.Get("theme_color", "#f472b6"); got != "#f472b6" {
		t.Fatalf("an empty value must fall back, got %q", got)
	}
	if got := cache.Get("unknown_key", "fallback"); got != "fallback" {
		t.Fatalf("an absent key must fall back, got %q", got)
	}
}
