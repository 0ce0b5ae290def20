package posts

import "context"

// Repository defines the data access interface for posts
// Used by the Jetstream consumer to index posts from the firehose and by
// the mentions service to hydrate and visibility-check mentioning posts.
type Repository interface {
	// Upsert inserts or updates an indexed post
	// Idempotent: replays of the same commit leave the row unchanged
	Upsert(ctx context.Context, post *Post) error

	// GetByURI retrieves a post by its AT-URI
	GetByURI(ctx context.Context, uri string) (*Post, error)

	// GetByURIsBatch retrieves multiple posts by AT-URI in a single query
	// Returns map[uri]*Post; soft-deleted posts are excluded
	// Used for hydrating mentioned-by lists without N+1 queries
	GetByURIsBatch(ctx context.Context, uris []string) (map[string]*Post, error)

	// GetVisibleSubset returns the subset of uris the viewer is permitted
	// to see: the post exists, is not soft-deleted, and neither its author
	// nor its community is blocked by the viewer. A nil viewer (anonymous)
	// sees every non-deleted post. One query regardless of input size.
	GetVisibleSubset(ctx context.Context, uris []string, viewerDID *string) (map[string]bool, error)

	// ListByThread retrieves posts in a thread ordered by creation time
	ListByThread(ctx context.Context, threadURI string, limit, offset int) ([]*Post, error)

	// Delete soft-deletes a post (sets deleted_at)
	Delete(ctx context.Context, uri string) error
}
