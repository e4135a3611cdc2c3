// Package postgres stores the external id mapping table in PostgreSQL via
// lib/pq.
package postgres

import (
	"context"
	"database/sql"
)

// OpenMappingRepository connects, ensures MappingSchema exists and returns a
// repository owning the connection. Close the repository to release it.
func OpenMappingRepository(ctx context.Context, opts ...Option) (*MappingRepository, error) {
	db, err := Open(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if err := ApplyMigrations(ctx, db, MappingSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	repo := NewMappingRepository(db)
	repo.owned = true
	return repo, nil
}

// Migrate applies MappingSchema followed by any extra statements.
func Migrate(ctx context.Context, db *sql.DB, extra ...string) error {
	return ApplyMigrations(ctx, db, append([]string{MappingSchema}, extra...)...)
}
