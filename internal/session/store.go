package session

import (
	"context"
	"time"
)

// Store persists session records keyed by session id.
// Get returns ErrSessionNotFound for unknown ids.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Create(ctx context.Context, s *Session, ttl time.Duration) error
	// Touch updates only the last-seen time, so it never undoes a concurrent login.
	Touch(ctx context.Context, id string, lastSeen time.Time, ttl time.Duration) error
	MarkAuthenticated(ctx context.Context, id string, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
	IDs(ctx context.Context) ([]string, error)
}
