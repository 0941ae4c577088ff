package audit

import "context"

// Store is the durable, append-only audit log. Events are never mutated or
// deleted by this layer.
type Store interface {
	// Append assigns the event's ID, sequence and timestamp and persists it.
	Append(ctx context.Context, event Event) error
	// ListRecent returns events ordered timestamp descending, sequence
	// descending, so pagination over equal timestamps is deterministic.
	ListRecent(ctx context.Context, limit, offset int) ([]Event, error)
}
