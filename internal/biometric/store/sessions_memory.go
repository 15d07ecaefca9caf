package store

import (
	"context"
	"sync"
	"time"

	"hrgate/internal/biometric/models"
	id "hrgate/pkg/domain"
	"hrgate/pkg/platform/sentinel"
)

// InMemorySessionStore is the single-process fallback used when no Redis
// URL is configured, and the fixture for service tests.
type InMemorySessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]memorySession
	now      func() time.Time
}

type memorySession struct {
	session   models.CeremonySession
	expiresAt time.Time
}

func NewInMemorySessionStore(ttl time.Duration) *InMemorySessionStore {
	return &InMemorySessionStore{
		ttl:      ttl,
		sessions: make(map[string]memorySession),
		now:      time.Now,
	}
}

func (s *InMemorySessionStore) Save(_ context.Context, session models.CeremonySession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionKey(session.UserID, session.Kind)] = memorySession{
		session:   session,
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

func (s *InMemorySessionStore) Take(_ context.Context, userID id.UserID, kind models.CeremonyKind) (models.CeremonySession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sessionKey(userID, kind)
	entry, ok := s.sessions[key]
	if !ok {
		return models.CeremonySession{}, sentinel.ErrExpired
	}
	delete(s.sessions, key)
	if s.now().After(entry.expiresAt) {
		return models.CeremonySession{}, sentinel.ErrExpired
	}
	return entry.session, nil
}

func (s *InMemorySessionStore) Delete(_ context.Context, userID id.UserID, kind models.CeremonyKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionKey(userID, kind))
	return nil
}
