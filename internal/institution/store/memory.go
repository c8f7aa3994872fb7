package store

import (
	"context"
	"sync"

	"admitto/internal/institution"
	id "admitto/pkg/domain"
	"admitto/pkg/platform/sentinel"
)

type membershipKey struct {
	institutionID id.InstitutionID
	userID        id.UserID
}

// InMemoryMembershipStore keeps membership rows in memory for tests and
// local runs. The map key enforces at most one row per (institution, user).
type InMemoryMembershipStore struct {
	mu          sync.RWMutex
	memberships map[membershipKey]institution.Membership
}

func NewInMemoryMembershipStore() *InMemoryMembershipStore {
	return &InMemoryMembershipStore{memberships: make(map[membershipKey]institution.Membership)}
}

// Put stores a membership row. Seeding helper for tests and local runs;
// membership management is out of this service's write path.
func (s *InMemoryMembershipStore) Put(m institution.Membership) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberships[membershipKey{m.InstitutionID, m.UserID}] = m
}

// Remove deletes a membership row. Test helper.
func (s *InMemoryMembershipStore) Remove(institutionID id.InstitutionID, userID id.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.memberships, membershipKey{institutionID, userID})
}

func (s *InMemoryMembershipStore) FindMembership(_ context.Context, institutionID id.InstitutionID, userID id.UserID) (institution.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.memberships[membershipKey{institutionID, userID}]; ok {
		return m, nil
	}
	return institution.Membership{}, sentinel.ErrNotFound
}

// InMemoryInstitutionStore keeps institution rows in memory.
type InMemoryInstitutionStore struct {
	mu           sync.RWMutex
	institutions map[id.InstitutionID]institution.Institution
}

func NewInMemoryInstitutionStore() *InMemoryInstitutionStore {
	return &InMemoryInstitutionStore{institutions: make(map[id.InstitutionID]institution.Institution)}
}

// Put stores an institution row. Seeding helper.
func (s *InMemoryInstitutionStore) Put(inst institution.Institution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.institutions[inst.ID] = inst
}

func (s *InMemoryInstitutionStore) FindByID(_ context.Context, institutionID id.InstitutionID) (institution.Institution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if inst, ok := s.institutions[institutionID]; ok {
		return inst, nil
	}
	return institution.Institution{}, sentinel.ErrNotFound
}

// FindBySlug resolves an institution by its URL slug. Slugs are unique, so
// the linear scan has at most one hit.
func (s *InMemoryInstitutionStore) FindBySlug(_ context.Context, slug string) (institution.Institution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, inst := range s.institutions {
		if inst.Slug == slug {
			return inst, nil
		}
	}
	return institution.Institution{}, sentinel.ErrNotFound
}
