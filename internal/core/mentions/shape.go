package mentions

// ResponseShape is a tagged view over the post collection of a response.
// Endpoints assemble responses in three shapes: a single post, a flat list
// of posts, or a thread carrying its posts. The shape is resolved once at
// the pipeline boundary so the filter never type-inspects response objects.
// The zero value is the empty shape and yields no posts.
type ResponseShape struct {
	post   *PostView
	posts  []*PostView
	thread *ThreadView
}

// SinglePostShape wraps a single-post response
func SinglePostShape(post *PostView) ResponseShape {
	return ResponseShape{post: post}
}

// PostListShape wraps a post-list response
func PostListShape(posts []*PostView) ResponseShape {
	return ResponseShape{posts: posts}
}

// ThreadShape wraps a thread-with-posts response
func ThreadShape(thread *ThreadView) ResponseShape {
	return ResponseShape{thread: thread}
}

// PostViews flattens the shape to the posts present in the response.
// Returns nil for the empty shape; callers treat that as nothing to filter.
func (s ResponseShape) PostViews() []*PostView {
	switch {
	case s.post != nil:
		return []*PostView{s.post}
	case s.posts != nil:
		return s.posts
	case s.thread != nil:
		return s.thread.Posts
	default:
		return nil
	}
}
