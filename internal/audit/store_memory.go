package audit

import (
	"context"
	"sync"

	id "hrgate/pkg/domain"
)

// InMemoryStore keeps events per user for tests and development runs.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.UserID][]Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.UserID][]Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.UserID] = append(s.events[event.UserID], event)
	return nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.events[userID]
	if limit > 0 && limit < len(events) {
		events = events[len(events)-limit:]
	}
	return append([]Event{}, events...), nil
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[id.UserID][]Event)
}
