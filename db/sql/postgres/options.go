package postgres

import "time"

// Options configures the mapping database connection. The mapping table is
// read once at startup and written by bulk imports, so the pool stays small.
type Options struct {
	DSN             string
	MaxOpenConns    int
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

type Option func(*Options)

// WithDSN sets the lib/pq connection string.
func WithDSN(dsn string) Option {
	return func(o *Options) {
		if dsn != "" {
			o.DSN = dsn
		}
	}
}

func WithMaxOpenConns(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxOpenConns = n
		}
	}
}

// WithPingTimeout bounds the connectivity check done by Open.
func WithPingTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.PingTimeout = d
		}
	}
}

func defaultOptions() Options {
	return Options{
		MaxOpenConns:    4,
		ConnMaxIdleTime: time.Minute,
		PingTimeout:     5 * time.Second,
	}
}
