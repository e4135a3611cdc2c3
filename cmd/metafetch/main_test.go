package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/adeilh/metafetch/db/sql/sqlite"
	"github.com/adeilh/metafetch/httpx"
)

func writeConfig(t *testing.T, tmdbURL, addonURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metafetch.toml")
	body := fmt.Sprintf(`[tmdb]
api_key = "secret-key"
base_url = %q
requests_per_second = 1000
base_delay_ms = 1
batch_pause_ms = 1

[cache]
backend = "memory"

[kitsu]
addon_url = %q

[logging]
level = "error"
`, tmdbURL, addonURL)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestFetchCommandPrintsJSON(t *testing.T) {
	var calls atomic.Int32
	srv := httpx.New()
	srv.GET("/find/:id", func(c httpx.Context) error {
		calls.Add(1)
		if c.Param("id") == "tt404" {
			return c.JSON(httpx.StatusNotFound, map[string]any{"status_message": "nope"})
		}
		if c.QueryParam("api_key") != "secret-key" {
			return c.JSON(httpx.StatusUnauthorized, map[string]any{})
		}
		return c.JSON(httpx.StatusOK, map[string]any{"movie_results": []any{map[string]any{"title": "Heat"}}})
	})
	ts := httpx.NewAppTestServer(srv)
	defer ts.Close()

	cfg := writeConfig(t, ts.BaseURL(), "http://127.0.0.1:1")
	out, err := execute(t, "--config", cfg, "fetch", "tt0113277", "tt404")
	if err != nil {
		t.Fatalf("fetch error = %v\n%s", err, out)
	}

	var payload struct {
		Results []struct {
			ID     string         `json:"id"`
			Record map[string]any `json:"record"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if len(payload.Results) != 2 {
		t.Fatalf("results = %+v", payload.Results)
	}
	if payload.Results[0].ID != "tt0113277" || payload.Results[0].Record["imdb_id"] != "tt0113277" {
		t.Fatalf("first result = %+v", payload.Results[0])
	}
	if payload.Results[1].ID != "tt404" || payload.Results[1].Record != nil {
		t.Fatalf("second result = %+v", payload.Results[1])
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

func TestResolveCommandUsesAddon(t *testing.T) {
	addon := httpx.New()
	addon.GET("/meta/:type/:file", func(c httpx.Context) error {
		return c.JSON(httpx.StatusOK, map[string]any{"meta": map[string]any{"imdb_id": "tt2560140"}})
	})
	ts := httpx.NewAppTestServer(addon)
	defer ts.Close()

	cfg := writeConfig(t, "http://127.0.0.1:1", ts.BaseURL())
	out, err := execute(t, "--config", cfg, "resolve", "7442", "--type", "series")
	if err != nil {
		t.Fatalf("resolve error = %v\n%s", err, out)
	}
	var res struct {
		ID       string `json:"id"`
		Resolved bool   `json:"resolved"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if !res.Resolved || res.ID != "tt2560140" {
		t.Fatalf("resolution = %+v", res)
	}
}

func TestMappingImportIntoSQLite(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "anime.yaml")
	if err := os.WriteFile(file, []byte("\"1\": tt0112159\n\"7442\": tt2560140\n"), 0o644); err != nil {
		t.Fatalf("write mapping: %v", err)
	}
	dbPath := filepath.Join(dir, "ids.db")

	cfg := writeConfig(t, "http://127.0.0.1:1", "http://127.0.0.1:1")
	out, err := execute(t, "--config", cfg, "mapping", "import", file, "--driver", "sqlite", "--dsn", dbPath)
	if err != nil {
		t.Fatalf("import error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "Imported 2 mappings") {
		t.Fatalf("unexpected output %q", out)
	}

	repo, err := sqlite.Open(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("sqlite.Open() error = %v", err)
	}
	defer repo.Close()
	pairs, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("pairs = %v", pairs)
	}
}

func TestMappingImportRejectsUnknownDriver(t *testing.T) {
	cfg := writeConfig(t, "http://127.0.0.1:1", "http://127.0.0.1:1")
	file := filepath.Join(t.TempDir(), "m.json")
	if err := os.WriteFile(file, []byte(`{"1":"tt1"}`), 0o644); err != nil {
		t.Fatalf("write mapping: %v", err)
	}
	if _, err := execute(t, "--config", cfg, "mapping", "import", file, "--driver", "mysql"); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestConfigShowMasksSecrets(t *testing.T) {
	cfg := writeConfig(t, "http://127.0.0.1:1", "http://127.0.0.1:1")

	out, err := execute(t, "--config", cfg, "config", "show")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if strings.Contains(out, "secret-key") || !strings.Contains(out, "********") {
		t.Fatalf("secret not masked:\n%s", out)
	}

	out, err = execute(t, "--config", cfg, "config", "show", "--reveal")
	if err != nil {
		t.Fatalf("config show --reveal error = %v", err)
	}
	if !strings.Contains(out, "secret-key") {
		t.Fatalf("secret not revealed:\n%s", out)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, err := execute(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init error = %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("unexpected output %q", out)
	}
	if _, err := execute(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected refusal to overwrite")
	}
	if _, err := execute(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite error = %v", err)
	}

	t.Setenv("TMDB_API_KEY", "")
	out, err = execute(t, "--config", target, "config", "validate")
	if err != nil {
		t.Fatalf("config validate error = %v", err)
	}
	if !strings.Contains(out, "Configuration OK") || !strings.Contains(out, "tmdb.api_key is empty") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestInvalidConfigFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[cache]\nbackend = \"memcached\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := execute(t, "--config", path, "config", "validate"); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestMappingGetReadsStoredID(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "ids.db")
	repo, err := sqlite.Open(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("sqlite.Open() error = %v", err)
	}
	if err := repo.Upsert(context.Background(), "7442", "tt2560140"); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := repo.Upsert(context.Background(), "kitsu:11", "tt0409591"); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	_ = repo.Close()

	cfg := writeConfig(t, "http://127.0.0.1:1", "http://127.0.0.1:1")
	for arg, want := range map[string]string{"7442": "tt2560140", "kitsu:7442": "tt2560140", "11": "tt0409591"} {
		out, err := execute(t, "--config", cfg, "mapping", "get", arg, "--driver", "sqlite", "--dsn", dbPath)
		if err != nil {
			t.Fatalf("mapping get %s error = %v", arg, err)
		}
		if strings.TrimSpace(out) != want {
			t.Fatalf("mapping get %s = %q, want %s", arg, out, want)
		}
	}

	if _, err := execute(t, "--config", cfg, "mapping", "get", "999", "--driver", "sqlite", "--dsn", dbPath); err == nil {
		t.Fatal("expected error for unknown id")
	}
}
