package jetstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/bluesky-social/indigo/atproto/syntax"

	"Hollows/internal/core/mentions"
	"Hollows/internal/core/posts"
	"Hollows/internal/core/users"
)

const (
	// PostCollection is the lexicon collection identifier for thread posts
	PostCollection = "social.hollows.thread.post"

	// MaxPostContentBytes is the maximum allowed size for post content
	// Per lexicon: max 10000 graphemes, ~30000 bytes
	MaxPostContentBytes = 30000
)

// MentionEventConsumer consumes post commits from Jetstream and maintains
// the mention edge index alongside the post index. Mention edges are
// extracted from the record's rich-text facets; an update replaces the
// source post's whole edge set so removed mentions drop out.
type MentionEventConsumer struct {
	postRepo    posts.Repository
	mentionRepo mentions.Repository
	userRepo    users.Repository
}

// NewMentionEventConsumer creates a new Jetstream consumer for post and
// mention indexing
func NewMentionEventConsumer(
	postRepo posts.Repository,
	mentionRepo mentions.Repository,
	userRepo users.Repository,
) *MentionEventConsumer {
	return &MentionEventConsumer{
		postRepo:    postRepo,
		mentionRepo: mentionRepo,
		userRepo:    userRepo,
	}
}

// HandleEvent processes a Jetstream event
func (c *MentionEventConsumer) HandleEvent(ctx context.Context, event *JetstreamEvent) error {
	// Identity events keep the handle cache fresh for mention rendering
	if event.Kind == "identity" && event.Identity != nil {
		if err := c.userRepo.UpsertHandle(ctx, event.Identity.Did, event.Identity.Handle); err != nil {
			return fmt.Errorf("failed to index handle: %w", err)
		}
		return nil
	}

	if event.Kind != "commit" || event.Commit == nil {
		return nil
	}

	commit := event.Commit
	if commit.Collection != PostCollection {
		// Silently ignore other collections
		return nil
	}

	switch commit.Operation {
	case "create", "update":
		return c.indexPost(ctx, event.Did, commit)
	case "delete":
		return c.deletePost(ctx, event.Did, commit)
	default:
		log.Printf("Unknown operation for post record: %s", commit.Operation)
		return nil
	}
}

// indexPost upserts a post from the firehose and replaces its mention edges
func (c *MentionEventConsumer) indexPost(ctx context.Context, repoDID string, commit *CommitEvent) error {
	if commit.Record == nil {
		return fmt.Errorf("post %s event missing record data", commit.Operation)
	}

	record, err := parsePostRecord(commit.Record)
	if err != nil {
		return fmt.Errorf("failed to parse post record: %w", err)
	}

	if err := validatePostEvent(repoDID, record); err != nil {
		log.Printf("Rejecting post event from %s: %v", repoDID, err)
		return err
	}

	uri := fmt.Sprintf("at://%s/%s/%s", repoDID, PostCollection, commit.RKey)

	createdAt, err := time.Parse(time.RFC3339, record.CreatedAt)
	if err != nil {
		log.Printf("Warning: failed to parse createdAt timestamp, using current time: %v", err)
		createdAt = time.Now()
	}

	postType := record.PostType
	if postType == "" {
		postType = posts.PostTypeComment
	}

	var facetsJSON *string
	if len(record.Facets) > 0 {
		if b, err := json.Marshal(record.Facets); err == nil {
			s := string(b)
			facetsJSON = &s
		}
	}

	post := &posts.Post{
		URI:           uri,
		CID:           commit.CID,
		RKey:          commit.RKey,
		Type:          postType,
		AuthorDID:     repoDID,
		CommunityDID:  communityFromThread(record.Thread),
		ThreadURI:     record.Thread,
		Content:       &record.Content,
		ContentFacets: facetsJSON,
		CreatedAt:     createdAt,
		IndexedAt:     time.Now(),
	}
	if commit.Operation == "update" {
		now := time.Now()
		post.EditedAt = &now
	}

	if err := c.postRepo.Upsert(ctx, post); err != nil {
		return fmt.Errorf("failed to index post: %w", err)
	}

	// Event posts carry no user-authored rich text, so they never hold
	// mention edges; clearing handles a post edited from comment to event
	var targetURIs, subjectDIDs []string
	if postType == posts.PostTypeComment {
		targetURIs, subjectDIDs = ExtractMentions(uri, record.Facets)
	}
	if err := c.mentionRepo.ReplaceForPost(ctx, uri, targetURIs, subjectDIDs); err != nil {
		return fmt.Errorf("failed to replace mention edges: %w", err)
	}

	log.Printf("✓ Indexed post: %s (%d post mentions, %d user mentions)", uri, len(targetURIs), len(subjectDIDs))
	return nil
}

// deletePost soft-deletes a post and drops its mention edges
func (c *MentionEventConsumer) deletePost(ctx context.Context, repoDID string, commit *CommitEvent) error {
	uri := fmt.Sprintf("at://%s/%s/%s", repoDID, PostCollection, commit.RKey)

	if err := c.postRepo.Delete(ctx, uri); err != nil {
		if posts.IsNotFound(err) {
			// Never indexed or already deleted; edges may still exist
			log.Printf("Delete for unindexed post: %s", uri)
		} else {
			return fmt.Errorf("failed to delete post: %w", err)
		}
	}

	if err := c.mentionRepo.DeleteForPost(ctx, uri); err != nil {
		return fmt.Errorf("failed to delete mention edges: %w", err)
	}

	log.Printf("✓ Deleted post: %s", uri)
	return nil
}

// ExtractMentions pulls mention targets out of a record's facets.
// Returns deduplicated post AT-URIs and user DIDs in facet order.
// Invalid identifiers and self-mentions are skipped, not errors: a bad
// facet must never block indexing the post itself.
func ExtractMentions(sourceURI string, rawFacets []interface{}) (targetURIs []string, subjectDIDs []string) {
	if len(rawFacets) == 0 {
		return nil, nil
	}

	facets, err := parseFacets(rawFacets)
	if err != nil {
		log.Printf("Warning: failed to parse facets for %s: %v", sourceURI, err)
		return nil, nil
	}

	seenURI := make(map[string]bool)
	seenDID := make(map[string]bool)

	for _, facet := range facets {
		for _, feature := range facet.Features {
			switch feature.Type {
			case mentions.FacetPostMentionType:
				if _, err := syntax.ParseATURI(feature.URI); err != nil {
					log.Printf("Warning: skipping invalid post mention %q in %s", feature.URI, sourceURI)
					continue
				}
				if feature.URI == sourceURI || seenURI[feature.URI] {
					continue
				}
				seenURI[feature.URI] = true
				targetURIs = append(targetURIs, feature.URI)

			case mentions.FacetMentionType:
				if _, err := syntax.ParseDID(feature.DID); err != nil {
					log.Printf("Warning: skipping invalid user mention %q in %s", feature.DID, sourceURI)
					continue
				}
				if seenDID[feature.DID] {
					continue
				}
				seenDID[feature.DID] = true
				subjectDIDs = append(subjectDIDs, feature.DID)
			}
		}
	}

	return targetURIs, subjectDIDs
}

// parsePostRecord converts the raw record map into a typed post record
func parsePostRecord(record map[string]interface{}) (*posts.PostRecord, error) {
	// Marshal to JSON and back for proper type conversion
	recordJSON, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}

	var post posts.PostRecord
	if err := json.Unmarshal(recordJSON, &post); err != nil {
		return nil, fmt.Errorf("failed to unmarshal post record: %w", err)
	}

	return &post, nil
}

// parseFacets converts raw facet JSON into typed facets
func parseFacets(rawFacets []interface{}) ([]mentions.Facet, error) {
	facetsJSON, err := json.Marshal(rawFacets)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal facets: %w", err)
	}

	var facets []mentions.Facet
	if err := json.Unmarshal(facetsJSON, &facets); err != nil {
		return nil, fmt.Errorf("failed to unmarshal facets: %w", err)
	}

	return facets, nil
}

// validatePostEvent rejects malformed or oversized post events before they
// reach the database
func validatePostEvent(repoDID string, record *posts.PostRecord) error {
	if _, err := syntax.ParseDID(repoDID); err != nil {
		return fmt.Errorf("invalid repo DID %q: %w", repoDID, err)
	}
	if record.Thread == "" {
		return fmt.Errorf("post record missing thread reference")
	}
	if _, err := syntax.ParseATURI(record.Thread); err != nil {
		return fmt.Errorf("invalid thread URI %q: %w", record.Thread, err)
	}
	if len(record.Content) > MaxPostContentBytes {
		return fmt.Errorf("post content exceeds %d bytes", MaxPostContentBytes)
	}
	switch record.PostType {
	case "", posts.PostTypeComment, posts.PostTypeEvent:
	default:
		return fmt.Errorf("unknown post type %q", record.PostType)
	}
	return nil
}

// communityFromThread derives the owning community DID from a thread URI
// Thread records live in the community's repository, so the URI authority
// is the community DID
func communityFromThread(threadURI string) string {
	aturi, err := syntax.ParseATURI(threadURI)
	if err != nil {
		return ""
	}
	return aturi.Authority().String()
}
