package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// TMDB configures the /find fetch pipeline.
type TMDB struct {
	APIKey            string  `toml:"api_key"`
	BaseURL           string  `toml:"base_url"`
	Language          string  `toml:"language"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Concurrency       int64   `toml:"concurrency"`
	MaxAttempts       int     `toml:"max_attempts"`
	BaseDelayMillis   int     `toml:"base_delay_ms"`
	BatchSize         int     `toml:"batch_size"`
	BatchPauseMillis  int     `toml:"batch_pause_ms"`
}

// Cache selects the record cache backend and its encoding.
type Cache struct {
	Backend       string `toml:"backend"` // memory | bigcache | redis
	Codec         string `toml:"codec"`   // msgpack | cbor | json
	TTLHours      int    `toml:"ttl_hours"`
	MaxEntries    int64  `toml:"max_entries"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	KeyPrefix     string `toml:"key_prefix"`
}

// Kitsu configures the id resolver and where its mapping table comes from.
type Kitsu struct {
	AddonURL           string `toml:"addon_url"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
	UnresolvedTTLHours int    `toml:"unresolved_ttl_hours"`
	MappingFile        string `toml:"mapping_file"`
	MappingDriver      string `toml:"mapping_driver"` // "", postgres | sqlite
	MappingDSN         string `toml:"mapping_dsn"`
}

// Server configures the HTTP API.
type Server struct {
	Bind                string   `toml:"bind"`
	RequestsPerSecond   float64  `toml:"requests_per_second"`
	WriteTimeoutSeconds int      `toml:"write_timeout_seconds"`
	CORS                bool     `toml:"cors"`
	CORSOrigins         []string `toml:"cors_origins"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for metafetch.
type Config struct {
	TMDB    TMDB    `toml:"tmdb"`
	Cache   Cache   `toml:"cache"`
	Kitsu   Kitsu   `toml:"kitsu"`
	Server  Server  `toml:"server"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, normalizes and validates a configuration file. A
// missing file is not an error: defaults plus environment are used. The
// returned bool reports whether a file was read.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		if info, err := os.Stat(projectConfigFile); err == nil && !info.IsDir() {
			abs, err := filepath.Abs(projectConfigFile)
			if err != nil {
				return "", false, err
			}
			return abs, true, nil
		}
		path = defaultConfigPath
	}
	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	if _, err := os.Stat(expanded); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	return expanded, true, nil
}

// Encode renders the configuration as TOML. The API key and redis password
// are masked unless reveal is set.
func (c Config) Encode(reveal bool) ([]byte, error) {
	if !reveal {
		c.TMDB.APIKey = mask(c.TMDB.APIKey)
		c.Cache.RedisPassword = mask(c.Cache.RedisPassword)
	}
	return toml.Marshal(c)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func (t TMDB) Timeout() time.Duration { return seconds(t.TimeoutSeconds) }

func (t TMDB) BaseDelay() time.Duration { return time.Duration(t.BaseDelayMillis) * time.Millisecond }

func (t TMDB) BatchPause() time.Duration {
	return time.Duration(t.BatchPauseMillis) * time.Millisecond
}

func (c Cache) TTL() time.Duration { return hours(c.TTLHours) }

func (k Kitsu) Timeout() time.Duration { return seconds(k.TimeoutSeconds) }

func (k Kitsu) UnresolvedTTL() time.Duration { return hours(k.UnresolvedTTLHours) }

func (s Server) WriteTimeout() time.Duration { return seconds(s.WriteTimeoutSeconds) }

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func hours(n int) time.Duration { return time.Duration(n) * time.Hour }

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
