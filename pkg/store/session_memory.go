package store

import (
	"sync"
	"time"

	"jailroster/pkg/domain"
)

type memorySession struct {
	session domain.Session
	expires time.Time
}

// MemorySessionStore keeps sessions in-process. Used when no Redis is
// configured; sessions do not survive a restart.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]memorySession
	now      func() time.Time
}

// NewMemorySessionStore initializes an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]memorySession),
		now:      time.Now,
	}
}

// Put writes the session with TTL.
func (s *MemorySessionStore) Put(session domain.Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = memorySession{
		session: session,
		expires: s.now().Add(ttl),
	}
	return nil
}

// Get resolves a session id, dropping it when expired.
func (s *MemorySessionStore) Get(id string) (domain.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, false, nil
	}
	if s.now().After(entry.expires) {
		delete(s.sessions, id)
		return domain.Session{}, false, nil
	}
	return entry.session, true, nil
}

// Delete removes a session.
func (s *MemorySessionStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
