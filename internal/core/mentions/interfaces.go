package mentions

import "context"

// Repository defines the data access interface for mention edges
// Written by the Jetstream consumer, read by the mentions service.
type Repository interface {
	// ReplaceForPost atomically replaces the full mention edge set of a
	// source post. Called on post create and update; passing empty slices
	// clears the edges. Idempotent for a given (sourceURI, edge set).
	ReplaceForPost(ctx context.Context, sourceURI string, targetPostURIs []string, subjectDIDs []string) error

	// DeleteForPost removes all mention edges originating from a post
	// Called when the source post is deleted
	DeleteForPost(ctx context.Context, sourceURI string) error

	// ListMentionedBy retrieves URIs of posts that mention the target,
	// ordered by when each mentioning post was indexed (oldest first)
	ListMentionedBy(ctx context.Context, targetURI string, limit, offset int) ([]string, error)

	// GetMentionedByBatch retrieves mentioned-by source URIs for multiple
	// targets in a single query. Returns map[targetURI][]sourceURI with
	// each list in indexed order. Used when hydrating whole responses.
	GetMentionedByBatch(ctx context.Context, targetURIs []string) (map[string][]string, error)

	// ListMentionsPosts retrieves URIs of posts the source post mentions
	ListMentionsPosts(ctx context.Context, sourceURI string) ([]string, error)

	// ListMentionsUsers retrieves DIDs of users the source post mentions
	ListMentionsUsers(ctx context.Context, sourceURI string) ([]string, error)
}

// VisibilityChecker answers "which of these posts may this viewer see" in
// one batched call. Satisfied by the posts repository. Must be idempotent
// and side-effect-free; the filter relies on both.
type VisibilityChecker interface {
	GetVisibleSubset(ctx context.Context, uris []string, viewerDID *string) (map[string]bool, error)
}
