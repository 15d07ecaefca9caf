package store

import (
	"context"
	"strings"
	"sync"

	"hrgate/internal/geofence/models"
	id "hrgate/pkg/domain"
	"hrgate/pkg/platform/sentinel"
)

// InMemoryStore keeps office locations in memory. Used by unit tests and
// single-process development runs; production uses PostgresStore.
// Iteration order is insertion order, which is the zone evaluation order
// the geofence validator documents.
type InMemoryStore struct {
	mu        sync.RWMutex
	order     []id.LocationID
	locations map[id.LocationID]models.OfficeLocation
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		locations: make(map[id.LocationID]models.OfficeLocation),
	}
}

func (s *InMemoryStore) Create(_ context.Context, loc models.OfficeLocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.locations {
		if strings.EqualFold(existing.Name, loc.Name) {
			return sentinel.ErrConflict
		}
	}
	s.locations[loc.ID] = loc
	s.order = append(s.order, loc.ID)
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, loc models.OfficeLocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.locations[loc.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.locations[loc.ID] = loc
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, locID id.LocationID) (models.OfficeLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if loc, ok := s.locations[locID]; ok {
		return loc, nil
	}
	return models.OfficeLocation{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListActive(_ context.Context) ([]models.OfficeLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.OfficeLocation
	for _, locID := range s.order {
		if loc := s.locations[locID]; loc.IsActive {
			out = append(out, loc)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListAll(_ context.Context) ([]models.OfficeLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.OfficeLocation, 0, len(s.order))
	for _, locID := range s.order {
		out = append(out, s.locations[locID])
	}
	return out, nil
}
