package config

import (
	"errors"
	"fmt"

	"github.com/adeilh/metafetch/cache"
)

// Validate ensures the configuration is usable. A missing TMDB API key is
// deliberately not an error: lookups then fail with 401 and callers warn.
func (c *Config) Validate() error {
	if c.TMDB.MaxAttempts < 1 {
		return errors.New("tmdb.max_attempts must be at least 1")
	}
	if c.TMDB.RequestsPerSecond <= 0 {
		return errors.New("tmdb.requests_per_second must be positive")
	}
	switch c.Cache.Backend {
	case BackendMemory, BackendBigCache:
	case BackendRedis:
		if c.Cache.RedisAddr == "" {
			return errors.New("cache.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend %q is not one of memory, bigcache, redis", c.Cache.Backend)
	}
	if _, err := cache.CodecByName[struct{}](c.Cache.Codec); err != nil {
		return fmt.Errorf("cache.codec: %w", err)
	}
	switch c.Kitsu.MappingDriver {
	case "":
	case DriverPostgres, DriverSQLite:
		if c.Kitsu.MappingDSN == "" {
			return fmt.Errorf("kitsu.mapping_dsn is required for driver %q", c.Kitsu.MappingDriver)
		}
	default:
		return fmt.Errorf("kitsu.mapping_driver %q is not one of postgres, sqlite", c.Kitsu.MappingDriver)
	}
	if c.Server.RequestsPerSecond < 0 {
		return errors.New("server.requests_per_second must not be negative")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format %q is not one of json, console", c.Logging.Format)
	}
	return nil
}
