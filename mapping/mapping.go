// Package mapping loads static external-ID tables (Kitsu id -> IMDB id) from
// files or databases.
package mapping

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrUnsupportedFormat = errors.New("mapping: unsupported file format")

// Source yields the full mapping table in one call.
type Source interface {
	Load(ctx context.Context) (map[string]string, error)
}

// Static is an in-memory Source.
type Static map[string]string

func (s Static) Load(context.Context) (map[string]string, error) {
	out := make(map[string]string, len(s))
	for k, v := range s {
		if k = strings.TrimSpace(k); k != "" && strings.TrimSpace(v) != "" {
			out[k] = strings.TrimSpace(v)
		}
	}
	return out, nil
}

// File reads a JSON (.json) or YAML (.yaml, .yml) table. Both the object form
// and the list form are accepted:
//
//	{"1": "tt0112159"}
//	[{"kitsu_id": 1, "imdb_id": "tt0112159"}]
type File struct {
	Path string
}

func (f File) Load(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("mapping: read %s: %w", f.Path, err)
	}

	var raw any
	switch strings.ToLower(filepath.Ext(f.Path)) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("mapping: decode %s: %w", f.Path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("mapping: decode %s: %w", f.Path, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f.Path)
	}

	out, err := normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("mapping: %s: %w", f.Path, err)
	}
	return out, nil
}

func normalize(raw any) (map[string]string, error) {
	out := make(map[string]string)
	switch v := raw.(type) {
	case nil:
		return out, nil
	case map[string]any:
		for k, val := range v {
			put(out, k, val)
		}
	case map[any]any:
		for k, val := range v {
			put(out, scalar(k), val)
		}
	case []any:
		for i, item := range v {
			row, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("row %d: expected object, got %T", i, item)
			}
			put(out, scalar(row["kitsu_id"]), row["imdb_id"])
		}
	default:
		return nil, fmt.Errorf("expected object or list, got %T", raw)
	}
	return out, nil
}

func put(out map[string]string, key string, value any) {
	key = strings.TrimSpace(key)
	val := strings.TrimSpace(scalar(value))
	if key == "" || val == "" {
		return
	}
	out[key] = val
}

func scalar(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	default:
		return fmt.Sprint(s)
	}
}
