package jetstream

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Hollows/internal/core/posts"
)

// mockPostRepo is a test double for the posts Repository interface
type mockPostRepo struct {
	posts   map[string]*posts.Post
	deleted []string
}

func newMockPostRepo() *mockPostRepo {
	return &mockPostRepo{posts: make(map[string]*posts.Post)}
}

func (m *mockPostRepo) Upsert(ctx context.Context, post *posts.Post) error {
	m.posts[post.URI] = post
	return nil
}

func (m *mockPostRepo) GetByURI(ctx context.Context, uri string) (*posts.Post, error) {
	if p, ok := m.posts[uri]; ok {
		return p, nil
	}
	return nil, posts.ErrNotFound
}

func (m *mockPostRepo) GetByURIsBatch(ctx context.Context, uris []string) (map[string]*posts.Post, error) {
	return nil, nil
}

func (m *mockPostRepo) GetVisibleSubset(ctx context.Context, uris []string, viewerDID *string) (map[string]bool, error) {
	return nil, nil
}

func (m *mockPostRepo) ListByThread(ctx context.Context, threadURI string, limit, offset int) ([]*posts.Post, error) {
	return nil, nil
}

func (m *mockPostRepo) Delete(ctx context.Context, uri string) error {
	if _, ok := m.posts[uri]; !ok {
		return posts.ErrNotFound
	}
	delete(m.posts, uri)
	m.deleted = append(m.deleted, uri)
	return nil
}

// mockMentionRepo records edge replacement calls
type mockMentionRepo struct {
	replaceCalls map[string]int
	deletedFor   []string
	lastTargets  []string
	lastDIDs     []string
}

func newMockMentionRepo() *mockMentionRepo {
	return &mockMentionRepo{replaceCalls: make(map[string]int)}
}

func (m *mockMentionRepo) ReplaceForPost(ctx context.Context, sourceURI string, targetPostURIs []string, subjectDIDs []string) error {
	m.replaceCalls[sourceURI]++
	m.lastTargets = targetPostURIs
	m.lastDIDs = subjectDIDs
	return nil
}

func (m *mockMentionRepo) DeleteForPost(ctx context.Context, sourceURI string) error {
	m.deletedFor = append(m.deletedFor, sourceURI)
	return nil
}

func (m *mockMentionRepo) ListMentionedBy(ctx context.Context, targetURI string, limit, offset int) ([]string, error) {
	return nil, nil
}

func (m *mockMentionRepo) GetMentionedByBatch(ctx context.Context, targetURIs []string) (map[string][]string, error) {
	return nil, nil
}

func (m *mockMentionRepo) ListMentionsPosts(ctx context.Context, sourceURI string) ([]string, error) {
	return nil, nil
}

func (m *mockMentionRepo) ListMentionsUsers(ctx context.Context, sourceURI string) ([]string, error) {
	return nil, nil
}

// mockUserRepo records handle upserts
type mockUserRepo struct {
	handles map[string]string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{handles: make(map[string]string)}
}

func (m *mockUserRepo) UpsertHandle(ctx context.Context, did, handle string) error {
	m.handles[did] = handle
	return nil
}

func (m *mockUserRepo) GetHandlesBatch(ctx context.Context, dids []string) (map[string]string, error) {
	return m.handles, nil
}

const (
	testThreadURI = "at://did:plc:community1/social.hollows.thread.root/3kthread"
	testTargetURI = "at://did:plc:bob/social.hollows.thread.post/3ktarget"
)

func newTestConsumer() (*MentionEventConsumer, *mockPostRepo, *mockMentionRepo, *mockUserRepo) {
	postRepo := newMockPostRepo()
	mentionRepo := newMockMentionRepo()
	userRepo := newMockUserRepo()
	return NewMentionEventConsumer(postRepo, mentionRepo, userRepo), postRepo, mentionRepo, userRepo
}

func postCommit(operation, rkey string, record map[string]interface{}) *JetstreamEvent {
	return &JetstreamEvent{
		Did:  "did:plc:alice",
		Kind: "commit",
		Commit: &CommitEvent{
			Operation:  operation,
			Collection: PostCollection,
			RKey:       rkey,
			CID:        "bafytest",
			Record:     record,
		},
	}
}

func commentRecord(facets []interface{}) map[string]interface{} {
	record := map[string]interface{}{
		"$type":     PostCollection,
		"thread":    testThreadURI,
		"content":   "hello @bob, see that other post",
		"createdAt": "2026-03-01T12:00:00Z",
	}
	if facets != nil {
		record["facets"] = facets
	}
	return record
}

func mentionFacets() []interface{} {
	return []interface{}{
		map[string]interface{}{
			"index": map[string]interface{}{"byteStart": 6, "byteEnd": 10},
			"features": []interface{}{
				map[string]interface{}{
					"$type": "social.hollows.richtext.facet#mention",
					"did":   "did:plc:bob",
				},
			},
		},
		map[string]interface{}{
			"index": map[string]interface{}{"byteStart": 16, "byteEnd": 30},
			"features": []interface{}{
				map[string]interface{}{
					"$type": "social.hollows.richtext.facet#postMention",
					"uri":   testTargetURI,
				},
			},
		},
	}
}

func TestMentionConsumer_CreateIndexesPostAndEdges(t *testing.T) {
	consumer, postRepo, mentionRepo, _ := newTestConsumer()

	err := consumer.HandleEvent(context.Background(), postCommit("create", "3kabc", commentRecord(mentionFacets())))
	require.NoError(t, err)

	uri := "at://did:plc:alice/" + PostCollection + "/3kabc"
	post, ok := postRepo.posts[uri]
	require.True(t, ok, "post should be indexed")
	assert.Equal(t, posts.PostTypeComment, post.Type)
	assert.Equal(t, testThreadURI, post.ThreadURI)
	assert.Equal(t, "did:plc:community1", post.CommunityDID)

	assert.Equal(t, []string{testTargetURI}, mentionRepo.lastTargets)
	assert.Equal(t, []string{"did:plc:bob"}, mentionRepo.lastDIDs)
}

func TestMentionConsumer_UpdateReplacesEdges(t *testing.T) {
	consumer, _, mentionRepo, _ := newTestConsumer()

	require.NoError(t, consumer.HandleEvent(context.Background(),
		postCommit("create", "3kabc", commentRecord(mentionFacets()))))
	require.NoError(t, consumer.HandleEvent(context.Background(),
		postCommit("update", "3kabc", commentRecord(nil))))

	// Edit removed the mentions; the edge set must be replaced with empty
	assert.Empty(t, mentionRepo.lastTargets)
	assert.Empty(t, mentionRepo.lastDIDs)

	uri := "at://did:plc:alice/" + PostCollection + "/3kabc"
	assert.Equal(t, 2, mentionRepo.replaceCalls[uri], "one replace per create and update")
}

func TestMentionConsumer_DeleteRemovesEdges(t *testing.T) {
	consumer, postRepo, mentionRepo, _ := newTestConsumer()

	require.NoError(t, consumer.HandleEvent(context.Background(),
		postCommit("create", "3kabc", commentRecord(nil))))
	require.NoError(t, consumer.HandleEvent(context.Background(),
		postCommit("delete", "3kabc", nil)))

	uri := "at://did:plc:alice/" + PostCollection + "/3kabc"
	assert.Equal(t, []string{uri}, postRepo.deleted)
	assert.Equal(t, []string{uri}, mentionRepo.deletedFor)
}

func TestMentionConsumer_DeleteOfUnindexedPostStillClearsEdges(t *testing.T) {
	consumer, _, mentionRepo, _ := newTestConsumer()

	err := consumer.HandleEvent(context.Background(), postCommit("delete", "3kghost", nil))

	require.NoError(t, err)
	assert.Len(t, mentionRepo.deletedFor, 1)
}

func TestMentionConsumer_EventPostsCarryNoEdges(t *testing.T) {
	consumer, postRepo, mentionRepo, _ := newTestConsumer()

	record := commentRecord(mentionFacets())
	record["postType"] = posts.PostTypeEvent
	require.NoError(t, consumer.HandleEvent(context.Background(), postCommit("create", "3kev", record)))

	uri := "at://did:plc:alice/" + PostCollection + "/3kev"
	assert.Equal(t, posts.PostTypeEvent, postRepo.posts[uri].Type)
	assert.Empty(t, mentionRepo.lastTargets, "event posts never hold mention edges")
	assert.Empty(t, mentionRepo.lastDIDs)
}

func TestMentionConsumer_UpdateChangingTypePersistsNewType(t *testing.T) {
	consumer, postRepo, mentionRepo, _ := newTestConsumer()

	require.NoError(t, consumer.HandleEvent(context.Background(),
		postCommit("create", "3kabc", commentRecord(mentionFacets()))))

	record := commentRecord(mentionFacets())
	record["postType"] = posts.PostTypeEvent
	require.NoError(t, consumer.HandleEvent(context.Background(),
		postCommit("update", "3kabc", record)))

	// The stored type must follow the edit, or the filter keeps treating
	// the post as a comment while its edges are gone
	uri := "at://did:plc:alice/" + PostCollection + "/3kabc"
	assert.Equal(t, posts.PostTypeEvent, postRepo.posts[uri].Type)
	assert.Empty(t, mentionRepo.lastTargets)
	assert.Empty(t, mentionRepo.lastDIDs)
	assert.Equal(t, 2, mentionRepo.replaceCalls[uri])
}

func TestMentionConsumer_IgnoresOtherCollectionsAndKinds(t *testing.T) {
	consumer, postRepo, mentionRepo, _ := newTestConsumer()

	other := postCommit("create", "3kabc", commentRecord(nil))
	other.Commit.Collection = "social.hollows.community.profile"
	require.NoError(t, consumer.HandleEvent(context.Background(), other))

	require.NoError(t, consumer.HandleEvent(context.Background(), &JetstreamEvent{Kind: "account"}))
	require.NoError(t, consumer.HandleEvent(context.Background(), &JetstreamEvent{Kind: "commit"}))

	assert.Empty(t, postRepo.posts)
	assert.Empty(t, mentionRepo.replaceCalls)
}

func TestMentionConsumer_IdentityEventUpdatesHandle(t *testing.T) {
	consumer, _, _, userRepo := newTestConsumer()

	err := consumer.HandleEvent(context.Background(), &JetstreamEvent{
		Kind:     "identity",
		Did:      "did:plc:bob",
		Identity: &IdentityEvent{Did: "did:plc:bob", Handle: "bob.hollows.social"},
	})

	require.NoError(t, err)
	assert.Equal(t, "bob.hollows.social", userRepo.handles["did:plc:bob"])
}

func TestMentionConsumer_RejectsInvalidThread(t *testing.T) {
	consumer, postRepo, _, _ := newTestConsumer()

	record := commentRecord(nil)
	record["thread"] = "not-a-uri"
	err := consumer.HandleEvent(context.Background(), postCommit("create", "3kabc", record))

	assert.Error(t, err)
	assert.Empty(t, postRepo.posts)
}

func TestExtractMentions(t *testing.T) {
	sourceURI := "at://did:plc:alice/" + PostCollection + "/3ksrc"

	tests := []struct {
		name        string
		facets      []interface{}
		wantTargets []string
		wantDIDs    []string
	}{
		{
			name:        "no facets",
			facets:      nil,
			wantTargets: nil,
			wantDIDs:    nil,
		},
		{
			name:        "post and user mentions",
			facets:      mentionFacets(),
			wantTargets: []string{testTargetURI},
			wantDIDs:    []string{"did:plc:bob"},
		},
		{
			name: "invalid identifiers are skipped",
			facets: []interface{}{
				map[string]interface{}{
					"features": []interface{}{
						map[string]interface{}{"$type": "social.hollows.richtext.facet#mention", "did": "bob"},
						map[string]interface{}{"$type": "social.hollows.richtext.facet#postMention", "uri": "nope"},
					},
				},
			},
			wantTargets: nil,
			wantDIDs:    nil,
		},
		{
			name: "self mentions are dropped",
			facets: []interface{}{
				map[string]interface{}{
					"features": []interface{}{
						map[string]interface{}{"$type": "social.hollows.richtext.facet#postMention", "uri": sourceURI},
					},
				},
			},
			wantTargets: nil,
			wantDIDs:    nil,
		},
		{
			name: "duplicates are collapsed",
			facets: []interface{}{
				map[string]interface{}{
					"features": []interface{}{
						map[string]interface{}{"$type": "social.hollows.richtext.facet#postMention", "uri": testTargetURI},
						map[string]interface{}{"$type": "social.hollows.richtext.facet#postMention", "uri": testTargetURI},
						map[string]interface{}{"$type": "social.hollows.richtext.facet#mention", "did": "did:plc:bob"},
						map[string]interface{}{"$type": "social.hollows.richtext.facet#mention", "did": "did:plc:bob"},
					},
				},
			},
			wantTargets: []string{testTargetURI},
			wantDIDs:    []string{"did:plc:bob"},
		},
		{
			name: "unknown feature types are ignored",
			facets: []interface{}{
				map[string]interface{}{
					"features": []interface{}{
						map[string]interface{}{"$type": "social.hollows.richtext.facet#link", "uri": "https://example.com"},
					},
				},
			},
			wantTargets: nil,
			wantDIDs:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			targets, dids := ExtractMentions(sourceURI, tt.facets)
			assert.Equal(t, tt.wantTargets, targets)
			assert.Equal(t, tt.wantDIDs, dids)
		})
	}
}
