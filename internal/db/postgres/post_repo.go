package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/lib/pq"

	"Hollows/internal/core/posts"
)

type postgresPostRepo struct {
	db *sql.DB
}

// NewPostRepository creates a new PostgreSQL post repository
func NewPostRepository(db *sql.DB) posts.Repository {
	return &postgresPostRepo{db: db}
}

// Upsert inserts or updates an indexed post
// Called by the Jetstream consumer on create and update commits
// Idempotent: replaying the same commit leaves the row unchanged
func (r *postgresPostRepo) Upsert(ctx context.Context, post *posts.Post) error {
	query := `
		INSERT INTO posts (uri, cid, rkey, post_type, author_did, community_did,
		                   thread_uri, content, content_facets, created_at, edited_at, indexed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (uri) DO UPDATE SET
			cid = EXCLUDED.cid,
			post_type = EXCLUDED.post_type,
			community_did = EXCLUDED.community_did,
			thread_uri = EXCLUDED.thread_uri,
			content = EXCLUDED.content,
			content_facets = EXCLUDED.content_facets,
			edited_at = EXCLUDED.edited_at,
			indexed_at = EXCLUDED.indexed_at,
			deleted_at = NULL
		RETURNING id`

	var facets, content sql.NullString
	if post.ContentFacets != nil {
		facets = sql.NullString{String: *post.ContentFacets, Valid: true}
	}
	if post.Content != nil {
		content = sql.NullString{String: *post.Content, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		post.URI,
		post.CID,
		post.RKey,
		post.Type,
		post.AuthorDID,
		post.CommunityDID,
		post.ThreadURI,
		content,
		facets,
		post.CreatedAt,
		post.EditedAt,
		post.IndexedAt,
	).Scan(&post.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert post: %w", err)
	}

	return nil
}

// GetByURI retrieves a post by its AT-URI
func (r *postgresPostRepo) GetByURI(ctx context.Context, uri string) (*posts.Post, error) {
	query := `
		SELECT id, uri, cid, rkey, post_type, author_did, community_did, thread_uri,
		       content, content_facets, created_at, edited_at, indexed_at, deleted_at
		FROM posts
		WHERE uri = $1 AND deleted_at IS NULL`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, uri))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, posts.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	return post, nil
}

// GetByURIsBatch retrieves multiple posts by AT-URI in a single query
// Soft-deleted posts are excluded; callers treat absence as "gone"
func (r *postgresPostRepo) GetByURIsBatch(ctx context.Context, uris []string) (map[string]*posts.Post, error) {
	result := make(map[string]*posts.Post, len(uris))
	if len(uris) == 0 {
		return result, nil
	}

	query := `
		SELECT id, uri, cid, rkey, post_type, author_did, community_did, thread_uri,
		       content, content_facets, created_at, edited_at, indexed_at, deleted_at
		FROM posts
		WHERE uri = ANY($1) AND deleted_at IS NULL`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(uris))
	if err != nil {
		return nil, fmt.Errorf("failed to batch-get posts: %w", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		result[post.URI] = post
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}

	return result, nil
}

// GetVisibleSubset returns the subset of uris the viewer may see
// A post is visible when it exists, is not soft-deleted, and neither its
// author nor its community is blocked by the viewer. Anonymous viewers
// (nil DID) see every non-deleted post. One query regardless of input size.
func (r *postgresPostRepo) GetVisibleSubset(ctx context.Context, uris []string, viewerDID *string) (map[string]bool, error) {
	result := make(map[string]bool, len(uris))
	if len(uris) == 0 {
		return result, nil
	}

	query := `
		SELECT p.uri
		FROM posts p
		WHERE p.uri = ANY($1)
		  AND p.deleted_at IS NULL
		  AND ($2::text IS NULL OR (
		      NOT EXISTS (
		          SELECT 1 FROM user_blocks b
		          WHERE b.user_did = $2 AND b.subject_did = p.author_did
		      )
		      AND NOT EXISTS (
		          SELECT 1 FROM community_blocks cb
		          WHERE cb.user_did = $2 AND cb.community_did = p.community_did
		      )
		  ))`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(uris), viewerDID)
	if err != nil {
		return nil, fmt.Errorf("failed to check post visibility: %w", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		var uri string
		if err := rows.Scan(&uri); err != nil {
			return nil, fmt.Errorf("failed to scan visible uri: %w", err)
		}
		result[uri] = true
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating visible uris: %w", err)
	}

	return result, nil
}

// ListByThread retrieves posts in a thread ordered by creation time
func (r *postgresPostRepo) ListByThread(ctx context.Context, threadURI string, limit, offset int) ([]*posts.Post, error) {
	query := `
		SELECT id, uri, cid, rkey, post_type, author_did, community_did, thread_uri,
		       content, content_facets, created_at, edited_at, indexed_at, deleted_at
		FROM posts
		WHERE thread_uri = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, threadURI, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list thread posts: %w", err)
	}
	defer closeRows(rows)

	var result []*posts.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		result = append(result, post)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating thread posts: %w", err)
	}

	return result, nil
}

// Delete soft-deletes a post (sets deleted_at)
// Called by the Jetstream consumer on delete commits
func (r *postgresPostRepo) Delete(ctx context.Context, uri string) error {
	query := `UPDATE posts SET deleted_at = NOW() WHERE uri = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, uri)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rowsAffected == 0 {
		return posts.ErrNotFound
	}

	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(row rowScanner) (*posts.Post, error) {
	var post posts.Post
	var content, facets sql.NullString

	err := row.Scan(
		&post.ID,
		&post.URI,
		&post.CID,
		&post.RKey,
		&post.Type,
		&post.AuthorDID,
		&post.CommunityDID,
		&post.ThreadURI,
		&content,
		&facets,
		&post.CreatedAt,
		&post.EditedAt,
		&post.IndexedAt,
		&post.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	if content.Valid {
		post.Content = &content.String
	}
	if facets.Valid {
		post.ContentFacets = &facets.String
	}

	return &post, nil
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		// Log error but don't override the main error
		log.Printf("Failed to close rows: %v", err)
	}
}
