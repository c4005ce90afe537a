package audit

import "context"

// Store persists audit records. Implementations must be safe for
// concurrent use.
type Store interface {
	Append(ctx context.Context, rec Record) error
	// ListBySession returns the records for one session in append order.
	ListBySession(ctx context.Context, sessionID string) ([]Record, error)
	// ListRecent returns up to limit records, most recent first.
	ListRecent(ctx context.Context, limit int) ([]Record, error)
}
