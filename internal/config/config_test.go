package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/adeilh/metafetch/internal/config"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TMDB_API_KEY", "")
	t.Setenv("METAFETCH_REDIS_ADDR", "")
	t.Chdir(t.TempDir())
	return home
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	home := isolate(t)
	t.Setenv("TMDB_API_KEY", "env-key")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent")
	}
	if resolved != filepath.Join(home, ".config", "metafetch", "config.toml") {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.TMDB.APIKey != "env-key" {
		t.Fatalf("expected TMDB key from env, got %q", cfg.TMDB.APIKey)
	}
	if cfg.TMDB.Language != "it-IT" || cfg.TMDB.RequestsPerSecond != 40 || cfg.TMDB.MaxAttempts != 5 {
		t.Fatalf("unexpected tmdb defaults: %+v", cfg.TMDB)
	}
	if cfg.TMDB.BaseDelay() != 2*time.Second || cfg.TMDB.BatchPause() != 500*time.Millisecond || cfg.TMDB.Timeout() != 10*time.Second {
		t.Fatalf("unexpected durations: %v %v %v", cfg.TMDB.BaseDelay(), cfg.TMDB.BatchPause(), cfg.TMDB.Timeout())
	}
	if cfg.Cache.Backend != config.BackendMemory || cfg.Cache.Codec != "msgpack" || cfg.Cache.TTL() != 7*24*time.Hour {
		t.Fatalf("unexpected cache defaults: %+v", cfg.Cache)
	}
	if cfg.Kitsu.Timeout() != 20*time.Second || cfg.Kitsu.UnresolvedTTL() != 24*time.Hour {
		t.Fatalf("unexpected kitsu defaults: %+v", cfg.Kitsu)
	}
}

func TestLoadMissingAPIKeyIsNotAnError(t *testing.T) {
	isolate(t)
	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.TMDB.APIKey != "" {
		t.Fatalf("expected empty key, got %q", cfg.TMDB.APIKey)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	home := isolate(t)
	t.Setenv("METAFETCH_REDIS_ADDR", "redis.internal:6380")

	path := filepath.Join(home, "custom.toml")
	body := `
[tmdb]
api_key = "file-key"
language = "en-US"
batch_size = 5

[cache]
backend = "redis"
codec = "cbor"

[kitsu]
mapping_file = "~/maps/anime.yaml"
mapping_driver = "sqlite"
mapping_dsn = "~/maps/ids.db"

[logging]
format = "JSON"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected file %q to be used, got %q exists=%v", path, resolved, exists)
	}
	if cfg.TMDB.APIKey != "file-key" || cfg.TMDB.Language != "en-US" || cfg.TMDB.BatchSize != 5 {
		t.Fatalf("unexpected tmdb: %+v", cfg.TMDB)
	}
	if cfg.TMDB.RequestsPerSecond != 40 {
		t.Fatalf("unset fields must keep defaults, got %v", cfg.TMDB.RequestsPerSecond)
	}
	if cfg.Cache.RedisAddr != "redis.internal:6380" {
		t.Fatalf("expected redis addr from env, got %q", cfg.Cache.RedisAddr)
	}
	if cfg.Kitsu.MappingFile != filepath.Join(home, "maps", "anime.yaml") {
		t.Fatalf("mapping file not expanded: %q", cfg.Kitsu.MappingFile)
	}
	if cfg.Kitsu.MappingDSN != filepath.Join(home, "maps", "ids.db") {
		t.Fatalf("sqlite dsn not expanded: %q", cfg.Kitsu.MappingDSN)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("format not normalized: %q", cfg.Logging.Format)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	home := isolate(t)
	cases := map[string]string{
		"backend": "[cache]\nbackend = \"memcached\"\n",
		"codec":   "[cache]\ncodec = \"gob\"\n",
		"driver":  "[kitsu]\nmapping_driver = \"mysql\"\nmapping_dsn = \"x\"\n",
		"dsn":     "[kitsu]\nmapping_driver = \"postgres\"\n",
		"format":  "[logging]\nformat = \"xml\"\n",
		"unknown": "[tmdb]\nretries = 3\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(home, name+".toml")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, _, _, err := config.Load(path); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}

func TestSampleConfigLoads(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, ".config", "metafetch", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample error: %v", err)
	}
	cfg, _, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load sample error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to be found at the default path")
	}
	if cfg.Server.Bind != "127.0.0.1:7480" {
		t.Fatalf("unexpected bind: %q", cfg.Server.Bind)
	}
}

func TestEncodeMasksSecrets(t *testing.T) {
	cfg := config.Default()
	cfg.TMDB.APIKey = "super-secret"

	raw, err := cfg.Encode(false)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	if strings.Contains(string(raw), "super-secret") {
		t.Fatal("api key leaked in masked output")
	}
	var decoded config.Config
	if err := toml.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("masked output is not valid toml: %v", err)
	}
	if decoded.TMDB.Language != "it-IT" {
		t.Fatalf("unexpected round trip: %+v", decoded.TMDB)
	}

	revealed, err := cfg.Encode(true)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	if !strings.Contains(string(revealed), "super-secret") {
		t.Fatal("expected key in revealed output")
	}
}

func TestServerSection(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "server.toml")
	body := `
[server]
bind = " 0.0.0.0:9000 "
cors = true
cors_origins = ["https://web.stremio.com", "  "]
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Bind != "0.0.0.0:9000" {
		t.Fatalf("unexpected bind: %q", cfg.Server.Bind)
	}
	if !cfg.Server.CORS || len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "https://web.stremio.com" {
		t.Fatalf("unexpected cors: %+v", cfg.Server)
	}
	if cfg.Server.WriteTimeout() != 2*time.Minute {
		t.Fatalf("unexpected write timeout: %v", cfg.Server.WriteTimeout())
	}
}
