package driven

import "context"

// StateStore defines the driven port for the persisted key-value state the
// poller keeps per object. Objects are identified by (name, className).
type StateStore interface {
	// GetObjectID returns the ID for (name, className), creating it on first use.
	GetObjectID(ctx context.Context, name, className string) (int64, error)
	// GetState returns the value stored under key, or def when none exists.
	GetState(ctx context.Context, objectID int64, key, def string) (string, error)
	// SetState stores value under key, replacing any previous value.
	SetState(ctx context.Context, objectID int64, key, value string) error
}
