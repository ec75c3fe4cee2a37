// Package session provides server-side session storage for logged-in users.
package session

import (
	"context"
	"time"
)

// Session represents an authenticated session keyed by an opaque token.
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session has passed its expiry.
func (s *Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Store defines the interface for session storage backends.
// Implementations must treat expired sessions as absent.
type Store interface {
	// Put stores a session until its ExpiresAt.
	Put(ctx context.Context, sess *Session) error

	// Get retrieves a session by token. Returns domain.ErrSessionNotFound
	// if the token is unknown or expired.
	Get(ctx context.Context, token string) (*Session, error)

	// Delete removes a session. Deleting an unknown token is not an error.
	Delete(ctx context.Context, token string) error

	// Close releases any resources held by the store.
	Close() error
}
