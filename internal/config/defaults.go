package config

const (
	defaultConfigPath  = "~/.config/metafetch/config.toml"
	projectConfigFile  = "metafetch.toml"
	defaultTMDBBaseURL = "https://api.themoviedb.org/3"
	defaultLanguage    = "it-IT"
	defaultTMDBTimeout = 10
	defaultTMDBRate    = 40
	defaultMaxAttempts = 5
	defaultBaseDelayMs = 2000
	defaultBatchSize   = 20
	defaultBatchPause  = 500
	defaultBackend     = BackendMemory
	defaultCodec       = "msgpack"
	defaultTTLHours    = 7 * 24
	defaultMaxEntries  = 100000
	defaultKeyPrefix   = "metafetch:"
	defaultAddonURL    = "https://anime-kitsu.strem.fun"
	defaultKitsuTO     = 20
	defaultUnresolved  = 24
	defaultBind        = "127.0.0.1:7480"
	defaultWriteTO     = 120
	defaultLogFormat   = "console"
	defaultLogLevel    = "info"
)

// Cache backends.
const (
	BackendMemory   = "memory"
	BackendBigCache = "bigcache"
	BackendRedis    = "redis"
)

// Mapping drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		TMDB: TMDB{
			BaseURL:           defaultTMDBBaseURL,
			Language:          defaultLanguage,
			TimeoutSeconds:    defaultTMDBTimeout,
			RequestsPerSecond: defaultTMDBRate,
			Concurrency:       1,
			MaxAttempts:       defaultMaxAttempts,
			BaseDelayMillis:   defaultBaseDelayMs,
			BatchSize:         defaultBatchSize,
			BatchPauseMillis:  defaultBatchPause,
		},
		Cache: Cache{
			Backend:    defaultBackend,
			Codec:      defaultCodec,
			TTLHours:   defaultTTLHours,
			MaxEntries: defaultMaxEntries,
			RedisAddr:  "127.0.0.1:6379",
			KeyPrefix:  defaultKeyPrefix,
		},
		Kitsu: Kitsu{
			AddonURL:           defaultAddonURL,
			TimeoutSeconds:     defaultKitsuTO,
			UnresolvedTTLHours: defaultUnresolved,
		},
		Server: Server{
			Bind:                defaultBind,
			WriteTimeoutSeconds: defaultWriteTO,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
