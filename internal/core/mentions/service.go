package mentions

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/bluesky-social/indigo/atproto/syntax"

	"Hollows/internal/core/posts"
	"Hollows/internal/core/users"
)

const (
	// DefaultLimit is the page size applied when a request doesn't set one
	DefaultLimit = 50

	// MaxLimit caps the page size for mentioned-by and thread queries
	MaxLimit = 100
)

// Service defines the business logic interface for mention operations
// Orchestrates repository calls, hydrates view models, and applies the
// viewer visibility filter before anything is serialized
type Service interface {
	// GetMentionedBy retrieves posts that mention the subject post,
	// narrowed to those the viewer may see
	GetMentionedBy(ctx context.Context, req *GetMentionedByRequest) (*GetMentionedByResponse, error)

	// GetMentions retrieves the posts and users a post mentions
	// Read-through and unfiltered; feeds render-time substitution
	GetMentions(ctx context.Context, req *GetMentionsRequest) (*GetMentionsResponse, error)

	// GetThread retrieves a thread's posts with mentioned-by attached and
	// visibility-filtered
	GetThread(ctx context.Context, req *GetThreadRequest) (*GetThreadResponse, error)

	// AttachMentionedBy is the response-assembly hook: after the posts of
	// a response are fully loaded, batch-load their mentioned-by lists and
	// display data, then filter by viewer visibility. Must run before the
	// response is serialized. Empty shapes are a no-op.
	AttachMentionedBy(ctx context.Context, shape ResponseShape, viewerDID *string) error
}

// mentionService implements the Service interface
type mentionService struct {
	mentionRepo Repository
	postRepo    posts.Repository
	userRepo    users.Repository
	logger      *slog.Logger
}

// NewMentionService creates a new mention service instance
// The post repository doubles as the visibility checker
func NewMentionService(
	mentionRepo Repository,
	postRepo posts.Repository,
	userRepo users.Repository,
	logger *slog.Logger,
) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &mentionService{
		mentionRepo: mentionRepo,
		postRepo:    postRepo,
		userRepo:    userRepo,
		logger:      logger,
	}
}

// GetMentionedBy retrieves and filters the mentioned-by list of one post
func (s *mentionService) GetMentionedBy(ctx context.Context, req *GetMentionedByRequest) (*GetMentionedByResponse, error) {
	if req == nil || req.PostURI == "" {
		return nil, fmt.Errorf("%w: post URI is required", ErrInvalidRequest)
	}
	if _, err := syntax.ParseATURI(req.PostURI); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURI, req.PostURI)
	}

	limit := clampLimit(req.Limit)
	offset, err := decodeCursor(req.Cursor)
	if err != nil {
		return nil, err
	}

	// Subject must exist; mentioned-by of an unknown post is a 404, not
	// an empty list
	if _, err := s.postRepo.GetByURI(ctx, req.PostURI); err != nil {
		if posts.IsNotFound(err) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to fetch subject post: %w", err)
	}

	sources, err := s.mentionRepo.ListMentionedBy(ctx, req.PostURI, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list mentioned-by: %w", err)
	}

	resp := &GetMentionedByResponse{
		Subject:     req.PostURI,
		MentionedBy: []*PostRef{},
	}
	if len(sources) == limit {
		resp.Cursor = encodeCursor(offset + len(sources))
	}
	if len(sources) == 0 {
		return resp, nil
	}

	visible, err := s.postRepo.GetVisibleSubset(ctx, sources, req.ViewerDID)
	if err != nil {
		return nil, fmt.Errorf("failed to check mention visibility: %w", err)
	}

	refs, err := s.buildPostRefs(ctx, sources, visible)
	if err != nil {
		return nil, err
	}
	resp.MentionedBy = refs

	return resp, nil
}

// GetMentions retrieves what one post mentions, unfiltered
func (s *mentionService) GetMentions(ctx context.Context, req *GetMentionsRequest) (*GetMentionsResponse, error) {
	if req == nil || req.PostURI == "" {
		return nil, fmt.Errorf("%w: post URI is required", ErrInvalidRequest)
	}
	if _, err := syntax.ParseATURI(req.PostURI); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURI, req.PostURI)
	}

	if _, err := s.postRepo.GetByURI(ctx, req.PostURI); err != nil {
		if posts.IsNotFound(err) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to fetch subject post: %w", err)
	}

	targetURIs, err := s.mentionRepo.ListMentionsPosts(ctx, req.PostURI)
	if err != nil {
		return nil, fmt.Errorf("failed to list mentioned posts: %w", err)
	}
	subjectDIDs, err := s.mentionRepo.ListMentionsUsers(ctx, req.PostURI)
	if err != nil {
		return nil, fmt.Errorf("failed to list mentioned users: %w", err)
	}

	// No visibility pass here: mention targets render as plain references
	// in the post body regardless of who is looking
	postRefs, err := s.buildPostRefs(ctx, targetURIs, nil)
	if err != nil {
		return nil, err
	}

	handles, err := s.userRepo.GetHandlesBatch(ctx, subjectDIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch mentioned user handles: %w", err)
	}
	userRefs := make([]*UserRef, 0, len(subjectDIDs))
	for _, did := range subjectDIDs {
		userRefs = append(userRefs, &UserRef{DID: did, Handle: handles[did]})
	}

	return &GetMentionsResponse{
		Subject: req.PostURI,
		Posts:   postRefs,
		Users:   userRefs,
	}, nil
}

// GetThread retrieves a thread's posts and runs the mention hook over them
func (s *mentionService) GetThread(ctx context.Context, req *GetThreadRequest) (*GetThreadResponse, error) {
	if req == nil || req.ThreadURI == "" {
		return nil, fmt.Errorf("%w: thread URI is required", ErrInvalidRequest)
	}
	if _, err := syntax.ParseATURI(req.ThreadURI); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURI, req.ThreadURI)
	}

	limit := clampLimit(req.Limit)
	offset, err := decodeCursor(req.Cursor)
	if err != nil {
		return nil, err
	}

	threadPosts, err := s.postRepo.ListByThread(ctx, req.ThreadURI, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch thread posts: %w", err)
	}

	views, err := s.buildPostViews(ctx, threadPosts)
	if err != nil {
		return nil, err
	}

	thread := &ThreadView{URI: req.ThreadURI, Posts: views}
	if err := s.AttachMentionedBy(ctx, ThreadShape(thread), req.ViewerDID); err != nil {
		return nil, err
	}

	resp := &GetThreadResponse{Thread: thread}
	if len(threadPosts) == limit {
		resp.Cursor = encodeCursor(offset + len(threadPosts))
	}
	return resp, nil
}

// AttachMentionedBy hydrates mentioned-by lists for every comment post in
// the response, then applies the visibility filter. All display data for
// the mention refs is loaded here in two batch queries, so the filter and
// the serializer perform no further fetches.
func (s *mentionService) AttachMentionedBy(ctx context.Context, shape ResponseShape, viewerDID *string) error {
	views := shape.PostViews()
	if len(views) == 0 {
		return nil
	}

	var targets []string
	byURI := make(map[string]*PostView, len(views))
	for _, view := range views {
		if view == nil || view.Type != posts.PostTypeComment {
			continue
		}
		targets = append(targets, view.URI)
		byURI[view.URI] = view
	}
	if len(targets) == 0 {
		return nil
	}

	batch, err := s.mentionRepo.GetMentionedByBatch(ctx, targets)
	if err != nil {
		return fmt.Errorf("failed to batch-load mentioned-by: %w", err)
	}

	var sources []string
	seen := make(map[string]bool)
	for _, target := range targets {
		for _, src := range batch[target] {
			if !seen[src] {
				seen[src] = true
				sources = append(sources, src)
			}
		}
	}
	if len(sources) == 0 {
		return nil
	}

	refByURI, err := s.buildPostRefIndex(ctx, sources)
	if err != nil {
		return err
	}

	for _, target := range targets {
		view := byURI[target]
		for _, src := range batch[target] {
			// Sources no longer in the index (deleted posts) drop out here
			if ref, ok := refByURI[src]; ok {
				view.MentionedBy = append(view.MentionedBy, ref)
			}
		}
	}

	return FilterMentionedBy(ctx, shape, viewerDID, s.postRepo)
}

// buildPostRefs hydrates PostRefs for the given URIs, preserving input
// order. When visible is non-nil, URIs absent from it are skipped.
func (s *mentionService) buildPostRefs(ctx context.Context, uris []string, visible map[string]bool) ([]*PostRef, error) {
	refs := make([]*PostRef, 0, len(uris))
	if len(uris) == 0 {
		return refs, nil
	}

	refByURI, err := s.buildPostRefIndex(ctx, uris)
	if err != nil {
		return nil, err
	}

	for _, uri := range uris {
		if visible != nil && !visible[uri] {
			continue
		}
		if ref, ok := refByURI[uri]; ok {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

// buildPostRefIndex batch-loads posts and author handles for the given URIs
func (s *mentionService) buildPostRefIndex(ctx context.Context, uris []string) (map[string]*PostRef, error) {
	postMap, err := s.postRepo.GetByURIsBatch(ctx, uris)
	if err != nil {
		return nil, fmt.Errorf("failed to batch-load posts: %w", err)
	}

	dids := make([]string, 0, len(postMap))
	didSeen := make(map[string]bool)
	for _, post := range postMap {
		if !didSeen[post.AuthorDID] {
			didSeen[post.AuthorDID] = true
			dids = append(dids, post.AuthorDID)
		}
	}
	handles, err := s.userRepo.GetHandlesBatch(ctx, dids)
	if err != nil {
		// Missing handles degrade the view, they don't fail the request
		s.logger.Warn("failed to fetch author handles", "error", err)
		handles = map[string]string{}
	}

	index := make(map[string]*PostRef, len(postMap))
	for uri, post := range postMap {
		index[uri] = &PostRef{
			URI:          uri,
			AuthorDID:    post.AuthorDID,
			AuthorHandle: handles[post.AuthorDID],
			CreatedAt:    post.CreatedAt.UTC().Format(time.RFC3339),
		}
	}
	return index, nil
}

// buildPostViews hydrates full post views for a thread page
func (s *mentionService) buildPostViews(ctx context.Context, threadPosts []*posts.Post) ([]*PostView, error) {
	views := make([]*PostView, 0, len(threadPosts))
	if len(threadPosts) == 0 {
		return views, nil
	}

	dids := make([]string, 0, len(threadPosts))
	didSeen := make(map[string]bool)
	for _, post := range threadPosts {
		if !didSeen[post.AuthorDID] {
			didSeen[post.AuthorDID] = true
			dids = append(dids, post.AuthorDID)
		}
	}
	handles, err := s.userRepo.GetHandlesBatch(ctx, dids)
	if err != nil {
		s.logger.Warn("failed to fetch author handles", "error", err)
		handles = map[string]string{}
	}

	for _, post := range threadPosts {
		views = append(views, &PostView{
			URI:          post.URI,
			CID:          post.CID,
			Type:         post.Type,
			AuthorDID:    post.AuthorDID,
			AuthorHandle: handles[post.AuthorDID],
			ThreadURI:    post.ThreadURI,
			Content:      post.Content,
			CreatedAt:    post.CreatedAt.UTC().Format(time.RFC3339),
			IndexedAt:    post.IndexedAt.UTC().Format(time.RFC3339),
		})
	}
	return views, nil
}

// clampLimit applies the default and max page size bounds
func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// decodeCursor parses an offset cursor from a previous response
func decodeCursor(cursor *string) (int, error) {
	if cursor == nil || *cursor == "" {
		return 0, nil
	}
	offset, err := strconv.Atoi(*cursor)
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("%w: malformed cursor", ErrInvalidRequest)
	}
	return offset, nil
}

// encodeCursor builds the cursor for the next page
func encodeCursor(offset int) *string {
	c := strconv.Itoa(offset)
	return &c
}
