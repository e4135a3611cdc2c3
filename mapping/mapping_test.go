package mapping

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func assertTable(t *testing.T, got map[string]string) {
	t.Helper()
	want := map[string]string{"1": "tt0112159", "7442": "tt2560140"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("got[%s] = %q, want %q", k, got[k], v)
		}
	}
}

func TestFileFormatsLoadIdentically(t *testing.T) {
	cases := map[string]string{
		"object.json": `{"1": "tt0112159", "7442": "tt2560140", "99": ""}`,
		"list.json":   `[{"kitsu_id": 1, "imdb_id": "tt0112159"}, {"kitsu_id": "7442", "imdb_id": "tt2560140"}]`,
		"object.yaml": "1: tt0112159\n\"7442\": tt2560140\n",
		"list.yml":    "- kitsu_id: 1\n  imdb_id: tt0112159\n- kitsu_id: 7442\n  imdb_id: tt2560140\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := File{Path: writeFile(t, name, body)}.Load(context.Background())
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			assertTable(t, got)
		})
	}
}

func TestFileUnsupportedExtension(t *testing.T) {
	path := writeFile(t, "table.csv", "1,tt0112159\n")
	if _, err := (File{Path: path}).Load(context.Background()); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestFileMissing(t *testing.T) {
	if _, err := (File{Path: filepath.Join(t.TempDir(), "nope.json")}).Load(context.Background()); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestFileMalformed(t *testing.T) {
	path := writeFile(t, "bad.json", `{"1": `)
	if _, err := (File{Path: path}).Load(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
	path = writeFile(t, "scalar.json", `"tt1"`)
	if _, err := (File{Path: path}).Load(context.Background()); err == nil {
		t.Fatalf("expected shape error")
	}
}

func TestStaticDropsBlankEntries(t *testing.T) {
	got, err := Static{"1": "tt0112159", " 7442 ": "tt2560140", "3": " "}.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	assertTable(t, got)
}
