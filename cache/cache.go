package cache

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// DefaultTTL is applied by Set when no explicit TTL is given.
const DefaultTTL = 7 * 24 * time.Hour

var (
	ErrNotFound = errors.New("cache: key not found")
	ErrNilStore = errors.New("cache: store is required")
)

// Store represents a simple TTL-based cache abstraction that can be backed
// by memory, Redis, or any other KV store. Get returns ErrNotFound on a miss.
// A ttl <= 0 asks the store to keep the value until it is evicted.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Options configures a typed Cache.
type Options[V any] struct {
	Store      Store
	Codec      Codec[Entry[V]] // nil => Msgpack
	DefaultTTL time.Duration   // 0 => DefaultTTL
	Logger     *zap.Logger
	Clock      func() time.Time
}

// Cache stores values of type V on top of a byte Store. Every value is wrapped
// in an Entry so expiry is enforced on read regardless of what the backend
// does with TTLs. Cache never returns errors: a failing backend or a corrupt
// payload is logged and reported as a miss.
type Cache[V any] struct {
	store  Store
	codec  Codec[Entry[V]]
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// New builds a typed cache over opts.Store.
func New[V any](opts Options[V]) (*Cache[V], error) {
	if opts.Store == nil {
		return nil, ErrNilStore
	}
	c := &Cache[V]{
		store:  opts.Store,
		codec:  opts.Codec,
		ttl:    opts.DefaultTTL,
		logger: opts.Logger,
		now:    opts.Clock,
	}
	if c.codec == nil {
		c.codec = Msgpack[Entry[V]]{}
	}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// TTL returns the default time-to-live used by Set.
func (c *Cache[V]) TTL() time.Duration { return c.ttl }

// Get returns the value stored under key. Expired entries are deleted and
// reported as absent.
func (c *Cache[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V
	if c == nil || key == "" {
		return zero, false
	}

	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return zero, false
	}

	entry, err := c.codec.Decode(raw)
	if err != nil {
		c.logger.Warn("cache entry corrupt, evicting", zap.String("key", key), zap.Error(err))
		c.evict(ctx, key)
		return zero, false
	}
	if entry.Expired(c.now()) {
		c.evict(ctx, key)
		return zero, false
	}
	return entry.Value, true
}

// Set stores value under key with the default TTL, replacing any existing entry.
func (c *Cache[V]) Set(ctx context.Context, key string, value V) {
	c.SetWithTTL(ctx, key, value, c.ttl)
}

// SetWithTTL stores value under key. A ttl <= 0 never expires.
func (c *Cache[V]) SetWithTTL(ctx context.Context, key string, value V, ttl time.Duration) {
	if c == nil || key == "" {
		return
	}
	if ttl < 0 {
		ttl = 0
	}
	entry := Entry[V]{Key: key, Value: value, StoredAt: c.now(), TTL: ttl}
	raw, err := c.codec.Encode(entry)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, key, raw, ttl); err != nil {
		c.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes key. Missing keys are ignored.
func (c *Cache[V]) Delete(ctx context.Context, key string) {
	if c == nil || key == "" {
		return
	}
	c.evict(ctx, key)
}

func (c *Cache[V]) evict(ctx context.Context, key string) {
	if err := c.store.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		c.logger.Debug("cache delete failed", zap.String("key", key), zap.Error(err))
	}
}
