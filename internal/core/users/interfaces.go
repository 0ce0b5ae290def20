package users

import "context"

// Repository defines the data access interface for user identities
type Repository interface {
	// UpsertHandle records or refreshes the handle for a DID
	// Called by the Jetstream consumer on identity events
	UpsertHandle(ctx context.Context, did, handle string) error

	// GetHandlesBatch retrieves handles for multiple DIDs in a single query
	// Returns map[did]handle; unknown DIDs are simply absent
	// Used to hydrate mention display data before responses are filtered
	GetHandlesBatch(ctx context.Context, dids []string) (map[string]string, error)
}
