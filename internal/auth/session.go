package auth

import (
	"context"
	"sync"
	"time"
)

// MemorySessionStore holds sessions in process memory. Suits tests and
// single-instance deployments; the Redis store is the shared option.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]memorySession
}

type memorySession struct {
	session Session
	expires time.Time
}

// NewMemorySessionStore creates a new in-memory session store
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]memorySession),
	}
}

// Put stores a session with the given TTL (0 = no expiration).
func (s *MemorySessionStore) Put(ctx context.Context, session *Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}
	s.sessions[session.Token] = memorySession{session: *session, expires: expires}
	return nil
}

// Get retrieves a session by token, dropping it if expired.
func (s *MemorySessionStore) Get(ctx context.Context, token string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[token]
	if !ok {
		return nil, ErrNoSession
	}
	if !entry.expires.IsZero() && time.Now().After(entry.expires) {
		delete(s.sessions, token)
		return nil, ErrNoSession
	}

	session := entry.session
	return &session, nil
}

// Delete removes a session by token.
func (s *MemorySessionStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, token)
	return nil
}
