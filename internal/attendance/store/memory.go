// Package store provides attendance record persistence.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"hrgate/internal/attendance/models"
	id "hrgate/pkg/domain"
	"hrgate/pkg/platform/sentinel"
)

type dayKey struct {
	user id.UserID
	day  time.Time
}

// InMemoryStore mirrors the postgres store's semantics, including the
// one-record-per-user-per-day constraint.
type InMemoryStore struct {
	mu    sync.RWMutex
	byID  map[id.AttendanceID]models.Record
	byDay map[dayKey]id.AttendanceID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:  make(map[id.AttendanceID]models.Record),
		byDay: make(map[dayKey]id.AttendanceID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, record models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := dayKey{user: record.UserID, day: record.Day}
	if _, exists := s.byDay[key]; exists {
		return sentinel.ErrConflict
	}
	s.byDay[key] = record.ID
	s.byID[record.ID] = record
	return nil
}

func (s *InMemoryStore) FindByUserAndDay(_ context.Context, userID id.UserID, day time.Time) (models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recordID, ok := s.byDay[dayKey{user: userID, day: day}]
	if !ok {
		return models.Record{}, sentinel.ErrNotFound
	}
	return s.byID[recordID], nil
}

func (s *InMemoryStore) FindByID(_ context.Context, recordID id.AttendanceID) (models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.byID[recordID]
	if !ok {
		return models.Record{}, sentinel.ErrNotFound
	}
	return record, nil
}

func (s *InMemoryStore) Update(_ context.Context, record models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[record.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.byID[record.ID] = record
	return nil
}

func (s *InMemoryStore) ListByUserRange(_ context.Context, userID id.UserID, from, to time.Time) ([]models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Record
	for key, recordID := range s.byDay {
		if key.user != userID {
			continue
		}
		if key.day.Before(from) || key.day.After(to) {
			continue
		}
		out = append(out, s.byID[recordID])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}
