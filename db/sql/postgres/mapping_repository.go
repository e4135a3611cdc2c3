package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

var ErrInvalidMapping = errors.New("postgres: mapping ids must not be empty")

// MappingRepository persists external id -> resolved id pairs. It satisfies
// mapping.Source.
type MappingRepository struct {
	db    *sql.DB
	owned bool
}

// NewMappingRepository wraps an existing *sql.DB connection. The caller keeps
// ownership of db.
func NewMappingRepository(db *sql.DB) *MappingRepository {
	return &MappingRepository{db: db}
}

// Load returns every stored pair.
func (r *MappingRepository) Load(ctx context.Context) (map[string]string, error) {
	const query = `SELECT external_id, resolved_id FROM id_mappings`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, translateMappingError(err)
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
	if err := rows.Err(); err != nil {
		return nil, translateMappingError(err)
	}
	return out, nil
}

// Get returns the resolved id for one external id, or sql.ErrNoRows.
func (r *MappingRepository) Get(ctx context.Context, externalID string) (string, error) {
	const query = `SELECT resolved_id FROM id_mappings WHERE external_id = $1`
	var resolved string
	if err := r.db.QueryRowContext(ctx, query, externalID).Scan(&resolved); err != nil {
		return "", translateMappingError(err)
	}
	return resolved, nil
}

// Upsert inserts or replaces a single pair.
func (r *MappingRepository) Upsert(ctx context.Context, externalID, resolvedID string) error {
	externalID, resolvedID = strings.TrimSpace(externalID), strings.TrimSpace(resolvedID)
	if externalID == "" || resolvedID == "" {
		return ErrInvalidMapping
	}
	_, err := r.db.ExecContext(ctx, upsertMapping, externalID, resolvedID)
	return translateMappingError(err)
}

// UpsertMany writes all pairs in one transaction and returns how many were
// written. Pairs with an empty side are skipped.
func (r *MappingRepository) UpsertMany(ctx context.Context, pairs map[string]string) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, translateMappingError(err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertMapping)
	if err != nil {
		return 0, translateMappingError(err)
	}
	defer stmt.Close()

	n := 0
	for external, resolved := range pairs {
		external, resolved = strings.TrimSpace(external), strings.TrimSpace(resolved)
		if external == "" || resolved == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, external, resolved); err != nil {
			return 0, fmt.Errorf("postgres: upsert %s: %w", external, translateMappingError(err))
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, translateMappingError(err)
	}
	return n, nil
}

// Close releases the connection when the repository opened it itself.
func (r *MappingRepository) Close() error {
	if r.owned && r.db != nil {
		return r.db.Close()
	}
	return nil
}

const upsertMapping = `INSERT INTO id_mappings (external_id, resolved_id, updated_at)
	VALUES ($1, $2, now())
	ON CONFLICT (external_id) DO UPDATE SET resolved_id = EXCLUDED.resolved_id, updated_at = now()`

func translateMappingError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "42P01":
			return fmt.Errorf("postgres: id_mappings table missing, run migrations: %w", err)
		case "23502":
			return ErrInvalidMapping
		}
	}
	return err
}
