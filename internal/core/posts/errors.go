package posts

import "errors"

var (
	// ErrNotFound is returned when a post is not found by URI
	ErrNotFound = errors.New("post not found")

	// ErrInvalidURI is returned when a post URI fails AT-URI validation
	ErrInvalidURI = errors.New("invalid post URI")
)

// IsNotFound checks if an error is a "not found" error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
