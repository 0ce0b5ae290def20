package mentions

import "errors"

var (
	// ErrPostNotFound indicates the subject post doesn't exist
	ErrPostNotFound = errors.New("post not found")

	// ErrInvalidURI indicates a malformed AT-URI in a request
	ErrInvalidURI = errors.New("invalid post URI")

	// ErrInvalidRequest indicates missing or out-of-range request parameters
	ErrInvalidRequest = errors.New("invalid request")
)

// IsNotFound checks if an error is a "not found" error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPostNotFound)
}

// IsValidationError checks if an error is a request validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidURI) || errors.Is(err, ErrInvalidRequest)
}
