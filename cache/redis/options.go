package redis

import "time"

const (
	DefaultAddr     = "127.0.0.1:6379"
	DefaultTimeout  = 2 * time.Second
	DefaultPoolSize = 8
)

// Options describes the Redis connection behind a cache store.
type Options struct {
	Addr     string
	Password string
	DB       int
	// Timeout bounds dialing and each read or write. A slow cache turns into
	// a miss, so it stays well below the upstream request timeout.
	Timeout  time.Duration
	PoolSize int
	// KeyPrefix namespaces every key written by the store, e.g. "metafetch:tmdb:".
	KeyPrefix string
}

func (o Options) withDefaults() Options {
	if o.Addr == "" {
		o.Addr = DefaultAddr
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.DB < 0 {
		o.DB = 0
	}
	if o.PoolSize <= 0 {
		o.PoolSize = DefaultPoolSize
	}
	return o
}
