package mentions

// GetMentionedByRequest defines the parameters for fetching posts that
// mention a subject post
type GetMentionedByRequest struct {
	Cursor    *string
	ViewerDID *string
	PostURI   string
	Limit     int
}

// GetMentionsRequest defines the parameters for fetching what a post mentions
type GetMentionsRequest struct {
	PostURI string
}

// GetThreadRequest defines the parameters for fetching a thread with its
// posts, mentioned-by data attached and visibility-filtered
type GetThreadRequest struct {
	Cursor    *string
	ViewerDID *string
	ThreadURI string
	Limit     int
}

// GetThreadResponse is the output of social.hollows.thread.getThread
type GetThreadResponse struct {
	Thread *ThreadView `json:"thread"`
	Cursor *string     `json:"cursor,omitempty"`
}
