package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/adeilh/metafetch/cache"
)

var ErrNilClient = errors.New("redis: nil client")

// Store implements cache.Store on a go-redis client.
type Store struct {
	rdb         goredis.UniversalClient
	prefix      string
	closeClient bool
}

var _ cache.Store = (*Store)(nil)

// NewClient builds a go-redis client from opts. KeyPrefix is ignored.
func NewClient(opts Options) *goredis.Client {
	cfg := opts.withDefaults()
	return goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
		PoolSize:     cfg.PoolSize,
	})
}

// NewStore builds a Redis-backed cache store that owns its client.
func NewStore(opts Options) *Store {
	return &Store{rdb: NewClient(opts), prefix: opts.KeyPrefix, closeClient: true}
}

// NewStoreWithClient wraps a shared client. Close leaves the client open.
func NewStoreWithClient(client goredis.UniversalClient, prefix string) (*Store, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	return &Store{rdb: client, prefix: prefix}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if ttl > 0 && ttl < time.Millisecond {
		ttl = time.Millisecond
	}
	return s.rdb.Set(ctx, s.prefix+key, value, ttl).Err()
}

func (s *Store) Delete(ctx context.Context, key string) error {
	n, err := s.rdb.Del(ctx, s.prefix+key).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return cache.ErrNotFound
	}
	return nil
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close releases the client when the store owns it. Safe to call twice.
func (s *Store) Close() error {
	if !s.closeClient {
		return nil
	}
	if err := s.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
		return err
	}
	return nil
}
