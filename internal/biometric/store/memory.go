// Package store provides credential and ceremony-session persistence for
// the biometric gate.
package store

import (
	"context"
	"sync"

	"hrgate/internal/biometric/models"
	id "hrgate/pkg/domain"
	"hrgate/pkg/platform/sentinel"
)

// InMemoryStore keeps credentials in memory, keyed by user and by the
// base64url credential ID within a user.
type InMemoryStore struct {
	mu    sync.RWMutex
	creds map[id.UserID]map[string]models.Credential
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{creds: make(map[id.UserID]map[string]models.Credential)}
}

func (s *InMemoryStore) Create(_ context.Context, cred models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID, ok := s.creds[cred.UserID]
	if !ok {
		byID = make(map[string]models.Credential)
		s.creds[cred.UserID] = byID
	}
	if _, exists := byID[cred.CredentialID]; exists {
		return sentinel.ErrConflict
	}
	byID[cred.CredentialID] = cred
	return nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byID := s.creds[userID]
	out := make([]models.Credential, 0, len(byID))
	for _, cred := range byID {
		out = append(out, cred)
	}
	return out, nil
}

func (s *InMemoryStore) FindByUserAndCredentialID(_ context.Context, userID id.UserID, credentialID string) (models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.creds[userID][credentialID]
	if !ok {
		return models.Credential{}, sentinel.ErrNotFound
	}
	return cred, nil
}

func (s *InMemoryStore) Update(_ context.Context, cred models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID, ok := s.creds[cred.UserID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if _, exists := byID[cred.CredentialID]; !exists {
		return sentinel.ErrNotFound
	}
	byID[cred.CredentialID] = cred
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, userID id.UserID, credentialID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID, ok := s.creds[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if _, exists := byID[credentialID]; !exists {
		return sentinel.ErrNotFound
	}
	delete(byID, credentialID)
	return nil
}
