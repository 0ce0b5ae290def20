package mentions

import (
	"time"
)

// PostMention represents a directed mention edge between posts:
// the post at SourceURI mentions the post at TargetURI.
// The inverse view ("mentioned by") is the set of source URIs for a target.
// Edges are extracted from rich-text facets when a post is indexed and are
// read-only afterward; editing a post replaces its whole edge set.
type PostMention struct {
	IndexedAt time.Time `json:"indexedAt" db:"indexed_at"`
	SourceURI string    `json:"sourceUri" db:"source_uri"`
	TargetURI string    `json:"targetUri" db:"target_uri"`
	ID        int64     `json:"id" db:"id"`
}

// UserMention represents a post mentioning a user (@handle in rich text)
// Used for render-time substitution and notification fan-out; user mentions
// are never visibility-filtered
type UserMention struct {
	IndexedAt  time.Time `json:"indexedAt" db:"indexed_at"`
	SourceURI  string    `json:"sourceUri" db:"source_uri"`
	SubjectDID string    `json:"subjectDid" db:"subject_did"`
	ID         int64     `json:"id" db:"id"`
}

// Facet feature types recognized by the mention extractor
// Matches the social.hollows.richtext.facet lexicon
const (
	FacetMentionType     = "social.hollows.richtext.facet#mention"
	FacetPostMentionType = "social.hollows.richtext.facet#postMention"
)

// Facet represents a rich-text annotation over a byte range of post content
type Facet struct {
	Features []FacetFeature `json:"features"`
	Index    ByteSlice      `json:"index"`
}

// FacetFeature is one annotation within a facet
// Mention features carry a DID; postMention features carry an AT-URI
type FacetFeature struct {
	Type string `json:"$type"`
	DID  string `json:"did,omitempty"`
	URI  string `json:"uri,omitempty"`
}

// ByteSlice is the half-open byte range a facet applies to
type ByteSlice struct {
	ByteStart int `json:"byteStart"`
	ByteEnd   int `json:"byteEnd"`
}
