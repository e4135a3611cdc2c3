// Package memory provides a bounded in-process cache.Store backed by
// dgraph-io/ristretto.
package memory

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/adeilh/metafetch/cache"
)

var ErrRejected = errors.New("memory: write rejected")

// Options bounds the store. Every entry costs 1 and ristretto's internal
// per-item cost is ignored, so MaxEntries is the maximum number of live keys.
type Options struct {
	MaxEntries  int64
	BufferItems int64
	Metrics     bool
}

func (o Options) withDefaults() Options {
	if o.MaxEntries <= 0 {
		o.MaxEntries = 100000
	}
	if o.BufferItems <= 0 {
		o.BufferItems = 64
	}
	return o
}

// Store implements cache.Store on a ristretto cache.
type Store struct {
	c *ristretto.Cache
}

var _ cache.Store = (*Store)(nil)

func NewStore(opts Options) (*Store, error) {
	cfg := opts.withDefaults()
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.MaxEntries * 10,
		MaxCost:     cfg.MaxEntries,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,

		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &Store{c: c}, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, cache.ErrNotFound
	}
	b, ok := v.([]byte)
	if !ok {
		s.c.Del(key)
		return nil, cache.ErrNotFound
	}
	return b, nil
}

// Set writes synchronously: the value is visible to Get once Set returns.
func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if !s.c.SetWithTTL(key, value, 1, ttl) {
		return ErrRejected
	}
	s.c.Wait()
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.c.Del(key)
	return nil
}

func (s *Store) Close() error {
	s.c.Close()
	return nil
}

// Stats reports hit and miss counters. Both are zero unless Options.Metrics
// is set.
func (s *Store) Stats() (hits, misses uint64, ratio float64) {
	m := s.c.Metrics
	return m.Hits(), m.Misses(), m.Ratio()
}
