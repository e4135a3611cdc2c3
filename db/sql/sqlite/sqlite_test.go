package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func openTemp(t *testing.T) *MappingRepository {
	t.Helper()
	repo, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "mappings.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(context.Background(), " "); !errors.Is(err, ErrMissingPath) {
		t.Fatalf("expected ErrMissingPath, got %v", err)
	}
}

func TestUpsertOverwritesAndLoads(t *testing.T) {
	repo := openTemp(t)
	ctx := context.Background()

	if err := repo.Upsert(ctx, "1", "tt0000001"); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := repo.Upsert(ctx, "1", "tt0112159"); err != nil {
		t.Fatalf("Upsert() overwrite error = %v", err)
	}
	if err := repo.Upsert(ctx, "2", " "); !errors.Is(err, ErrInvalidMapping) {
		t.Fatalf("expected ErrInvalidMapping, got %v", err)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 1 || got["1"] != "tt0112159" {
		t.Fatalf("Load() = %v", got)
	}
}

func TestUpsertManyPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappings.db")
	ctx := context.Background()

	repo, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	n, err := repo.UpsertMany(ctx, map[string]string{"1": "tt0112159", "7442": "tt2560140", "": "tt0"})
	if err != nil {
		t.Fatalf("UpsertMany() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("UpsertMany() = %d, want 2", n)
	}
	if err := repo.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got["7442"] != "tt2560140" || len(got) != 2 {
		t.Fatalf("Load() = %v", got)
	}
}

func TestGetAndPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids.db")
	repo, err := Open(context.Background(), " "+path+" ")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer repo.Close()
	if repo.Path() != path {
		t.Fatalf("Path() = %q, want %q", repo.Path(), path)
	}

	ctx := context.Background()
	if err := repo.Upsert(ctx, "7442", "tt2560140"); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	got, err := repo.Get(ctx, "7442")
	if err != nil || got != "tt2560140" {
		t.Fatalf("Get() = %q, %v", got, err)
	}
	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}
