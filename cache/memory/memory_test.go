package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/adeilh/metafetch/cache"
)

func TestStoreSetGetDelete(t *testing.T) {
	store, err := NewStore(Options{MaxEntries: 100})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Set(ctx, "tt001", []byte("payload"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := store.Get(ctx, "tt001")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("Get() = %q, want payload", got)
	}

	if err := store.Delete(ctx, "tt001"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, "tt001"); !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreBackingTypedCache(t *testing.T) {
	store, err := NewStore(Options{MaxEntries: 100})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	defer store.Close()

	now := time.Unix(1_700_000_000, 0)
	c, err := cache.New(cache.Options[map[string]any]{
		Store:      store,
		DefaultTTL: time.Minute,
		Clock:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("cache.New() error = %v", err)
	}

	ctx := context.Background()
	c.Set(ctx, "tt002", map[string]any{"imdb_id": "tt002"})
	if got, ok := c.Get(ctx, "tt002"); !ok || got["imdb_id"] != "tt002" {
		t.Fatalf("unexpected cache read: %#v ok=%v", got, ok)
	}

	now = now.Add(time.Minute)
	if _, ok := c.Get(ctx, "tt002"); ok {
		t.Fatalf("expected envelope expiry to hide entry")
	}
}

func TestStoreHoldsMaxEntriesKeys(t *testing.T) {
	const n = 1000
	store, err := NewStore(Options{MaxEntries: n})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("kitsu:%d", i)
		if err := store.Set(ctx, key, []byte("tt"+key), 0); err != nil {
			t.Fatalf("Set(%s) error = %v", key, err)
		}
	}
	live := 0
	for i := 0; i < n; i++ {
		if _, err := store.Get(ctx, fmt.Sprintf("kitsu:%d", i)); err == nil {
			live++
		}
	}
	if live != n {
		t.Fatalf("stored %d keys with MaxEntries=%d, %d readable", n, n, live)
	}
}

func TestStoreStats(t *testing.T) {
	store, err := NewStore(Options{MaxEntries: 10, Metrics: true})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Set(ctx, "tt1", []byte("v"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	_, _ = store.Get(ctx, "tt1")
	_, _ = store.Get(ctx, "tt2")

	hits, misses, ratio := store.Stats()
	if hits != 1 || misses != 1 || ratio != 0.5 {
		t.Fatalf("Stats() = %d %d %v, want 1 1 0.5", hits, misses, ratio)
	}

	plain, err := NewStore(Options{MaxEntries: 10})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	defer plain.Close()
	if hits, misses, _ := plain.Stats(); hits != 0 || misses != 0 {
		t.Fatalf("Stats() without metrics = %d %d", hits, misses)
	}
}
