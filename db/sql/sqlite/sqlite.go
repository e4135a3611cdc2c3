// Package sqlite stores the external id mapping table in a local SQLite file
// using the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var (
	ErrMissingPath    = errors.New("sqlite: database path is required")
	ErrInvalidMapping = errors.New("sqlite: mapping ids must not be empty")
)

const mappingSchema = `CREATE TABLE IF NOT EXISTS id_mappings (
	external_id TEXT PRIMARY KEY,
	resolved_id TEXT NOT NULL,
	updated_at  TEXT NOT NULL
)`

// MappingRepository persists external id -> resolved id pairs. It satisfies
// mapping.Source.
type MappingRepository struct {
	db   *sql.DB
	path string
}

// Open creates (if needed) and opens the database at path and ensures the
// mapping table exists.
func Open(ctx context.Context, path string) (*MappingRepository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, ErrMissingPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range append(pragmas, mappingSchema) {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: apply %q: %w", firstLine(pragma), err)
		}
	}
	return &MappingRepository{db: db, path: path}, nil
}

// Path returns the database file location.
func (r *MappingRepository) Path() string { return r.path }

func (r *MappingRepository) Load(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT external_id, resolved_id FROM id_mappings`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: load: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var external, resolved string
		if err := rows.Scan(&external, &resolved); err != nil {
			return nil, err
		}
		out[external] = resolved
	}
	return out, rows.Err()
}

// Get returns the resolved id for one external id, or sql.ErrNoRows.
func (r *MappingRepository) Get(ctx context.Context, externalID string) (string, error) {
	var resolved string
	err := r.db.QueryRowContext(ctx, `SELECT resolved_id FROM id_mappings WHERE external_id = ?`, externalID).Scan(&resolved)
	if err != nil {
		return "", err
	}
	return resolved, nil
}

func (r *MappingRepository) Upsert(ctx context.Context, externalID, resolvedID string) error {
	externalID, resolvedID = strings.TrimSpace(externalID), strings.TrimSpace(resolvedID)
	if externalID == "" || resolvedID == "" {
		return ErrInvalidMapping
	}
	_, err := r.db.ExecContext(ctx, upsertMapping, externalID, resolvedID, now())
	return err
}

// UpsertMany writes all pairs in one transaction. Pairs with an empty side
// are skipped.
func (r *MappingRepository) UpsertMany(ctx context.Context, pairs map[string]string) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stamp := now()
	n := 0
	for external, resolved := range pairs {
		external, resolved = strings.TrimSpace(external), strings.TrimSpace(resolved)
		if external == "" || resolved == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, upsertMapping, external, resolved, stamp); err != nil {
			return 0, fmt.Errorf("sqlite: upsert %s: %w", external, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return n, nil
}

func (r *MappingRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

const upsertMapping = `INSERT INTO id_mappings (external_id, resolved_id, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(external_id) DO UPDATE SET resolved_id = excluded.resolved_id, updated_at = excluded.updated_at`

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
