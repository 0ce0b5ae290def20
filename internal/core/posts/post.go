package posts

import (
	"time"
)

// Post types as stored in the AppView database.
// Comment posts carry user-authored rich text and participate in mentions;
// event posts (thread renamed, locked, etc.) are system-generated and do not.
const (
	PostTypeComment = "comment"
	PostTypeEvent   = "event"
)

// Post represents a post in the AppView database
// Posts are indexed from the firehose after being written to user repositories
type Post struct {
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	IndexedAt     time.Time  `json:"indexedAt" db:"indexed_at"`
	EditedAt      *time.Time `json:"editedAt,omitempty" db:"edited_at"`
	DeletedAt     *time.Time `json:"deletedAt,omitempty" db:"deleted_at"`
	Content       *string    `json:"content,omitempty" db:"content"`
	ContentFacets *string    `json:"contentFacets,omitempty" db:"content_facets"`
	URI           string     `json:"uri" db:"uri"`
	CID           string     `json:"cid" db:"cid"`
	RKey          string     `json:"rkey" db:"rkey"`
	Type          string     `json:"type" db:"post_type"`
	AuthorDID     string     `json:"authorDid" db:"author_did"`
	CommunityDID  string     `json:"communityDid" db:"community_did"`
	ThreadURI     string     `json:"threadUri" db:"thread_uri"`
	ID            int64      `json:"id" db:"id"`
}

// IsComment reports whether mentions semantics apply to this post
func (p *Post) IsComment() bool {
	return p.Type == PostTypeComment
}

// PostRecord represents the atProto record structure indexed from Jetstream
// Matches the social.hollows.thread.post lexicon
type PostRecord struct {
	Facets    []interface{} `json:"facets,omitempty"`
	Type      string        `json:"$type"`
	Thread    string        `json:"thread"`
	Content   string        `json:"content"`
	PostType  string        `json:"postType,omitempty"`
	CreatedAt string        `json:"createdAt"`
}
