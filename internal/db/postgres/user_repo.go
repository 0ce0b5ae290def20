package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"Hollows/internal/core/users"
)

type postgresUserRepo struct {
	db *sql.DB
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db *sql.DB) users.Repository {
	return &postgresUserRepo{db: db}
}

// UpsertHandle records or refreshes the handle for a DID
// Called by the Jetstream consumer on identity events
func (r *postgresUserRepo) UpsertHandle(ctx context.Context, did, handle string) error {
	query := `
		INSERT INTO users (did, handle, indexed_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (did) DO UPDATE SET
			handle = EXCLUDED.handle,
			indexed_at = EXCLUDED.indexed_at`

	if _, err := r.db.ExecContext(ctx, query, did, handle); err != nil {
		return fmt.Errorf("failed to upsert handle: %w", err)
	}

	return nil
}

// GetHandlesBatch retrieves handles for multiple DIDs in a single query
// Unknown DIDs are absent from the returned map
func (r *postgresUserRepo) GetHandlesBatch(ctx context.Context, dids []string) (map[string]string, error) {
	result := make(map[string]string, len(dids))
	if len(dids) == 0 {
		return result, nil
	}

	query := `SELECT did, handle FROM users WHERE did = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(dids))
	if err != nil {
		return nil, fmt.Errorf("failed to batch-get handles: %w", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		var did, handle string
		if err := rows.Scan(&did, &handle); err != nil {
			return nil, fmt.Errorf("failed to scan handle: %w", err)
		}
		result[did] = handle
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating handles: %w", err)
	}

	return result, nil
}
