// Package store holds the injected persistence used by the note and
// preference tools. The orchestrator never touches it directly; it is
// passed into the tool registry at startup.
package store

import "context"

// Note is a saved note.
type Note struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// Store is the get/put interface the tools depend on. Implementations own
// their write serialization: concurrent tool rounds from different client
// requests may call into one store at the same time.
type Store interface {
	PutNote(ctx context.Context, title, content string) (Note, error)
	ListNotes(ctx context.Context) ([]Note, error)
	SetPreference(ctx context.Context, key, value string) error
	ListPreferences(ctx context.Context) (map[string]string, error)
	Close() error
}
