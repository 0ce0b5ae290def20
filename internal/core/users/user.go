package users

import "time"

// User represents a user identity in the AppView database
// Handles are cached from the firehose identity events so mention rendering
// never has to resolve a DID at request time
type User struct {
	IndexedAt time.Time `json:"indexedAt" db:"indexed_at"`
	DID       string    `json:"did" db:"did"`
	Handle    string    `json:"handle" db:"handle"`
	ID        int64     `json:"id" db:"id"`
}
