package analysis

import "context"

// SessionStore persists analysis sessions. Implementations return
// sentinel.ErrNotFound when the session does not exist or has expired.
type SessionStore interface {
	Save(ctx context.Context, session *Session) error
	FindByID(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	Len() int
}
