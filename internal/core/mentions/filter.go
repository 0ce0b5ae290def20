package mentions

import (
	"context"
	"fmt"

	"Hollows/internal/core/posts"
)

// FilterMentionedBy narrows the mentioned-by list of every comment post in
// the response to the mentioning posts the viewer is permitted to see.
//
// Algorithm:
//  1. Select the comment posts in the response (other post types pass
//     through untouched).
//  2. Collect the deduplicated union of mentioned-by URIs across them.
//  3. Ask the visibility checker once for the visible subset. One batched
//     call, never one check per post.
//  4. Replace each comment post's mentioned-by list with the intersection
//     of its original list and the visible subset, preserving order.
//
// The mutation is local to the response object graph; nothing is persisted.
// An empty or unrecognized shape is a no-op and makes zero checker calls.
// Checker failures propagate to the caller, which owns request failure
// behavior.
func FilterMentionedBy(ctx context.Context, shape ResponseShape, viewerDID *string, checker VisibilityChecker) error {
	views := shape.PostViews()
	if len(views) == 0 {
		return nil
	}

	var candidates []*PostView
	var uris []string
	seen := make(map[string]bool)

	for _, view := range views {
		if view == nil || view.Type != posts.PostTypeComment || len(view.MentionedBy) == 0 {
			continue
		}
		candidates = append(candidates, view)
		for _, ref := range view.MentionedBy {
			if !seen[ref.URI] {
				seen[ref.URI] = true
				uris = append(uris, ref.URI)
			}
		}
	}

	if len(uris) == 0 {
		return nil
	}

	visible, err := checker.GetVisibleSubset(ctx, uris, viewerDID)
	if err != nil {
		return fmt.Errorf("failed to check mention visibility: %w", err)
	}

	for _, view := range candidates {
		kept := make([]*PostRef, 0, len(view.MentionedBy))
		for _, ref := range view.MentionedBy {
			if visible[ref.URI] {
				kept = append(kept, ref)
			}
		}
		view.MentionedBy = kept
	}

	return nil
}
