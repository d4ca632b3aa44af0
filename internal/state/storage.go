// Package state holds the interview state machine: states, the keyword
// transition table, session storage and per-user locking.
package state

import "context"

// Storage defines the persistence contract for interview sessions.
type Storage interface {
	// GetSession returns the stored session or ErrSessionNotFound.
	GetSession(ctx context.Context, userID string) (*Session, error)
	// SaveSession stores the session, replacing any previous entry.
	SaveSession(ctx context.Context, session *Session) error
	// DeleteSession removes the session. Deleting a missing session is not an error.
	DeleteSession(ctx context.Context, userID string) error
	// ListSessions returns every stored session.
	ListSessions(ctx context.Context) ([]*Session, error)
}
