package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// MappingSchema creates the external id table used by MappingRepository.
const MappingSchema = `CREATE TABLE IF NOT EXISTS id_mappings (
	external_id TEXT PRIMARY KEY,
	resolved_id TEXT NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// ApplyMigrations executes the provided SQL statements in order. Empty
// statements are skipped.
func ApplyMigrations(ctx context.Context, db *sql.DB, statements ...string) error {
	if db == nil {
		return fmt.Errorf("postgres: db is nil")
	}
	for i, stmt := range statements {
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migrate step %d: %w", i, err)
		}
	}
	return nil
}
