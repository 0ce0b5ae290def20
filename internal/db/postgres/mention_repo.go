package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"Hollows/internal/core/mentions"
)

type postgresMentionRepo struct {
	db *sql.DB
}

// NewMentionRepository creates a new PostgreSQL mention repository
func NewMentionRepository(db *sql.DB) mentions.Repository {
	return &postgresMentionRepo{db: db}
}

// ReplaceForPost atomically replaces the full mention edge set of a source
// post. Called by the Jetstream consumer on create and update commits, so
// edits that remove a mention drop the edge. Idempotent per edge set.
func (r *postgresMentionRepo) ReplaceForPost(ctx context.Context, sourceURI string, targetPostURIs []string, subjectDIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin mention replace: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM post_mentions WHERE source_uri = $1`, sourceURI); err != nil {
		return fmt.Errorf("failed to clear post mentions: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_mentions WHERE source_uri = $1`, sourceURI); err != nil {
		return fmt.Errorf("failed to clear user mentions: %w", err)
	}

	if len(targetPostURIs) > 0 {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO post_mentions (source_uri, target_uri)
			SELECT $1, unnest($2::text[])
			ON CONFLICT (source_uri, target_uri) DO NOTHING`,
			sourceURI, pq.Array(targetPostURIs)); err != nil {
			return fmt.Errorf("failed to insert post mentions: %w", err)
		}
	}

	if len(subjectDIDs) > 0 {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_mentions (source_uri, subject_did)
			SELECT $1, unnest($2::text[])
			ON CONFLICT (source_uri, subject_did) DO NOTHING`,
			sourceURI, pq.Array(subjectDIDs)); err != nil {
			return fmt.Errorf("failed to insert user mentions: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit mention replace: %w", err)
	}

	return nil
}

// DeleteForPost removes all mention edges originating from a post
func (r *postgresMentionRepo) DeleteForPost(ctx context.Context, sourceURI string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin mention delete: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM post_mentions WHERE source_uri = $1`, sourceURI); err != nil {
		return fmt.Errorf("failed to delete post mentions: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_mentions WHERE source_uri = $1`, sourceURI); err != nil {
		return fmt.Errorf("failed to delete user mentions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit mention delete: %w", err)
	}

	return nil
}

// ListMentionedBy retrieves URIs of posts that mention the target, oldest
// mentioning post first so the back-reference list reads chronologically
func (r *postgresMentionRepo) ListMentionedBy(ctx context.Context, targetURI string, limit, offset int) ([]string, error) {
	query := `
		SELECT source_uri
		FROM post_mentions
		WHERE target_uri = $1
		ORDER BY indexed_at ASC, id ASC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, targetURI, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list mentioned-by: %w", err)
	}
	defer closeRows(rows)

	var sources []string
	for rows.Next() {
		var uri string
		if err := rows.Scan(&uri); err != nil {
			return nil, fmt.Errorf("failed to scan mention source: %w", err)
		}
		sources = append(sources, uri)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mentioned-by: %w", err)
	}

	return sources, nil
}

// GetMentionedByBatch retrieves mentioned-by source URIs for multiple
// targets in a single query. Returns map[targetURI][]sourceURI with each
// list in indexed order, matching ListMentionedBy. Used to hydrate whole
// responses without N+1 queries.
func (r *postgresMentionRepo) GetMentionedByBatch(ctx context.Context, targetURIs []string) (map[string][]string, error) {
	result := make(map[string][]string, len(targetURIs))
	if len(targetURIs) == 0 {
		return result, nil
	}

	query := `
		SELECT target_uri, source_uri
		FROM post_mentions
		WHERE target_uri = ANY($1)
		ORDER BY indexed_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(targetURIs))
	if err != nil {
		return nil, fmt.Errorf("failed to batch-list mentioned-by: %w", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		var target, source string
		if err := rows.Scan(&target, &source); err != nil {
			return nil, fmt.Errorf("failed to scan mention edge: %w", err)
		}
		result[target] = append(result[target], source)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mention edges: %w", err)
	}

	return result, nil
}

// ListMentionsPosts retrieves URIs of posts the source post mentions
func (r *postgresMentionRepo) ListMentionsPosts(ctx context.Context, sourceURI string) ([]string, error) {
	return r.listColumn(ctx, `
		SELECT target_uri
		FROM post_mentions
		WHERE source_uri = $1
		ORDER BY id ASC`, sourceURI)
}

// ListMentionsUsers retrieves DIDs of users the source post mentions
func (r *postgresMentionRepo) ListMentionsUsers(ctx context.Context, sourceURI string) ([]string, error) {
	return r.listColumn(ctx, `
		SELECT subject_did
		FROM user_mentions
		WHERE source_uri = $1
		ORDER BY id ASC`, sourceURI)
}

func (r *postgresMentionRepo) listColumn(ctx context.Context, query, arg string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list mentions: %w", err)
	}
	defer closeRows(rows)

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan mention: %w", err)
		}
		values = append(values, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mentions: %w", err)
	}

	return values, nil
}
