package mentions

// PostView represents the response-assembly view of a post
// Matches social.hollows.mention.getMentionedBy#postView lexicon
// MentionedBy is the in-memory association the visibility filter narrows;
// it is attached during hydration and never re-fetched afterward
type PostView struct {
	Content      *string    `json:"content,omitempty"`
	URI          string     `json:"uri"`
	CID          string     `json:"cid"`
	Type         string     `json:"type"`
	AuthorDID    string     `json:"authorDid"`
	AuthorHandle string     `json:"authorHandle,omitempty"`
	ThreadURI    string     `json:"threadUri,omitempty"`
	CreatedAt    string     `json:"createdAt"`
	IndexedAt    string     `json:"indexedAt"`
	MentionedBy  []*PostRef `json:"mentionedBy,omitempty"`
}

// PostRef is a minimal hydrated reference to a mentioning post
// Carries the display data needed to render a "mentioned by" chip without
// another fetch
type PostRef struct {
	URI          string `json:"uri"`
	AuthorDID    string `json:"authorDid"`
	AuthorHandle string `json:"authorHandle,omitempty"`
	CreatedAt    string `json:"createdAt"`
}

// UserRef is a hydrated reference to a mentioned user
type UserRef struct {
	DID    string `json:"did"`
	Handle string `json:"handle,omitempty"`
}

// ThreadView represents a thread (discussion) with its loaded posts
// Matches social.hollows.thread.getThread#threadView lexicon
type ThreadView struct {
	URI   string      `json:"uri"`
	Title string      `json:"title,omitempty"`
	Posts []*PostView `json:"posts"`
}

// GetMentionedByResponse is the output of social.hollows.mention.getMentionedBy
type GetMentionedByResponse struct {
	Subject     string     `json:"subject"`
	MentionedBy []*PostRef `json:"mentionedBy"`
	Cursor      *string    `json:"cursor,omitempty"`
}

// GetMentionsResponse is the output of social.hollows.mention.getMentions
// Both lists are read-through and unfiltered; they feed render-time
// substitution of mention text, not visibility decisions
type GetMentionsResponse struct {
	Subject string     `json:"subject"`
	Posts   []*PostRef `json:"posts"`
	Users   []*UserRef `json:"users"`
}
