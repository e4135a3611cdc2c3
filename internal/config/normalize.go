package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeTMDB()
	c.normalizeCache()
	if err := c.normalizeKitsu(); err != nil {
		return err
	}
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultBind
	}
	if c.Server.WriteTimeoutSeconds <= 0 {
		c.Server.WriteTimeoutSeconds = defaultWriteTO
	}
	origins := c.Server.CORSOrigins[:0]
	for _, o := range c.Server.CORSOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.Server.CORSOrigins = origins
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}

func (c *Config) normalizeTMDB() {
	c.TMDB.APIKey = strings.TrimSpace(c.TMDB.APIKey)
	if c.TMDB.APIKey == "" {
		if value, ok := os.LookupEnv("TMDB_API_KEY"); ok {
			c.TMDB.APIKey = strings.TrimSpace(value)
		}
	}
	c.TMDB.BaseURL = strings.TrimRight(strings.TrimSpace(c.TMDB.BaseURL), "/")
	if c.TMDB.BaseURL == "" {
		c.TMDB.BaseURL = defaultTMDBBaseURL
	}
	c.TMDB.Language = strings.TrimSpace(c.TMDB.Language)
	if c.TMDB.Language == "" {
		c.TMDB.Language = defaultLanguage
	}
	if c.TMDB.TimeoutSeconds <= 0 {
		c.TMDB.TimeoutSeconds = defaultTMDBTimeout
	}
	if c.TMDB.RequestsPerSecond <= 0 {
		c.TMDB.RequestsPerSecond = defaultTMDBRate
	}
	if c.TMDB.Concurrency <= 0 {
		c.TMDB.Concurrency = 1
	}
	if c.TMDB.MaxAttempts <= 0 {
		c.TMDB.MaxAttempts = defaultMaxAttempts
	}
	if c.TMDB.BaseDelayMillis < 0 {
		c.TMDB.BaseDelayMillis = defaultBaseDelayMs
	}
	if c.TMDB.BatchSize <= 0 {
		c.TMDB.BatchSize = defaultBatchSize
	}
	if c.TMDB.BatchPauseMillis < 0 {
		c.TMDB.BatchPauseMillis = defaultBatchPause
	}
}

func (c *Config) normalizeCache() {
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Backend == "" {
		c.Cache.Backend = defaultBackend
	}
	c.Cache.Codec = strings.ToLower(strings.TrimSpace(c.Cache.Codec))
	if c.Cache.Codec == "" {
		c.Cache.Codec = defaultCodec
	}
	if c.Cache.TTLHours <= 0 {
		c.Cache.TTLHours = defaultTTLHours
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = defaultMaxEntries
	}
	if value, ok := os.LookupEnv("METAFETCH_REDIS_ADDR"); ok && strings.TrimSpace(value) != "" {
		c.Cache.RedisAddr = strings.TrimSpace(value)
	}
	c.Cache.RedisAddr = strings.TrimSpace(c.Cache.RedisAddr)
}

func (c *Config) normalizeKitsu() error {
	c.Kitsu.AddonURL = strings.TrimRight(strings.TrimSpace(c.Kitsu.AddonURL), "/")
	if c.Kitsu.AddonURL == "" {
		c.Kitsu.AddonURL = defaultAddonURL
	}
	if c.Kitsu.TimeoutSeconds <= 0 {
		c.Kitsu.TimeoutSeconds = defaultKitsuTO
	}
	if c.Kitsu.UnresolvedTTLHours <= 0 {
		c.Kitsu.UnresolvedTTLHours = defaultUnresolved
	}
	var err error
	if c.Kitsu.MappingFile, err = expandPath(strings.TrimSpace(c.Kitsu.MappingFile)); err != nil {
		return fmt.Errorf("kitsu.mapping_file: %w", err)
	}
	c.Kitsu.MappingDriver = strings.ToLower(strings.TrimSpace(c.Kitsu.MappingDriver))
	c.Kitsu.MappingDSN = strings.TrimSpace(c.Kitsu.MappingDSN)
	if c.Kitsu.MappingDriver == DriverSQLite {
		if c.Kitsu.MappingDSN, err = expandPath(c.Kitsu.MappingDSN); err != nil {
			return fmt.Errorf("kitsu.mapping_dsn: %w", err)
		}
	}
	return nil
}
