package store

import (
	"context"
	"sync"

	"admitto/internal/identity"
	"admitto/pkg/platform/sentinel"
)

// InMemoryUserStore keeps user rows in memory, keyed by external ID. It
// intentionally favors clarity over performance; unit tests and local runs
// use it in place of Postgres.
type InMemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]identity.User
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{users: make(map[string]identity.User)}
}

// UpsertByExternalID creates the row or overwrites its mutable fields.
// The internal ID, creation time, and onboarding flag survive updates.
func (s *InMemoryUserStore) UpsertByExternalID(_ context.Context, user identity.User) (identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.users[user.ExternalID]; ok {
		existing.Email = user.Email
		existing.FirstName = user.FirstName
		existing.LastName = user.LastName
		existing.AvatarURL = user.AvatarURL
		existing.Phone = user.Phone
		existing.UpdatedAt = user.UpdatedAt
		s.users[user.ExternalID] = existing
		return existing, nil
	}

	s.users[user.ExternalID] = user
	return user, nil
}

// DeleteByExternalID removes the row if present. Absent is a successful
// no-op.
func (s *InMemoryUserStore) DeleteByExternalID(_ context.Context, externalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, externalID)
	return nil
}

func (s *InMemoryUserStore) FindByExternalID(_ context.Context, externalID string) (identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[externalID]; ok {
		return user, nil
	}
	return identity.User{}, sentinel.ErrNotFound
}

// Len reports the number of rows. Test helper.
func (s *InMemoryUserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
