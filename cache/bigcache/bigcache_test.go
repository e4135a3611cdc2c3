package bigcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adeilh/metafetch/cache"
)

func TestStoreSetGetDelete(t *testing.T) {
	store, err := NewStore(context.Background(), Options{LifeWindow: time.Hour})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Set(ctx, "kitsu:1", []byte("tt0000001"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := store.Get(ctx, "kitsu:1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "tt0000001" {
		t.Fatalf("Get() = %q", got)
	}
	if err := store.Delete(ctx, "kitsu:1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, "kitsu:1"); !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Delete(ctx, "kitsu:1"); !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
