// Package bigcache provides an in-process cache.Store backed by
// allegro/bigcache. BigCache has a single life window for all entries, so
// per-entry TTLs are enforced by the cache.Entry envelope on read.
package bigcache

import (
	"context"
	"errors"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/adeilh/metafetch/cache"
)

type Options struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int
}

func (o Options) withDefaults() Options {
	if o.LifeWindow <= 0 {
		o.LifeWindow = cache.DefaultTTL
	}
	if o.CleanWindow <= 0 {
		o.CleanWindow = 10 * time.Minute
	}
	return o
}

type Store struct {
	c *bc.BigCache
}

var _ cache.Store = (*Store)(nil)

func NewStore(ctx context.Context, opts Options) (*Store, error) {
	cfg := opts.withDefaults()
	conf := bc.DefaultConfig(cfg.LifeWindow)
	conf.CleanWindow = cfg.CleanWindow
	conf.Verbose = false
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.New(ctx, conf)
	if err != nil {
		return nil, err
	}
	return &Store{c: c}, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	b, err := s.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Set ignores ttl; see the package comment.
func (s *Store) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	return s.c.Set(key, value)
}

func (s *Store) Delete(_ context.Context, key string) error {
	err := s.c.Delete(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return cache.ErrNotFound
	}
	return err
}

func (s *Store) Close() error {
	return s.c.Close()
}
