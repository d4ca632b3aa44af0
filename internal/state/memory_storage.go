package state

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage keeps sessions in process memory. It is used when no Redis
// is configured and in tests.
type MemoryStorage struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStorage creates an empty in-memory Storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{sessions: make(map[string]*Session)}
}

func (s *MemoryStorage) GetSession(_ context.Context, userID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[userID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session.clone(), nil
}

func (s *MemoryStorage) SaveSession(_ context.Context, session *Session) error {
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.UserID] = session.clone()
	return nil
}

func (s *MemoryStorage) DeleteSession(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

func (s *MemoryStorage) ListSessions(_ context.Context) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		result = append(result, session.clone())
	}
	return result, nil
}
