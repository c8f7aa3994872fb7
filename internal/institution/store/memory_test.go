package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"admitto/internal/institution"
	id "admitto/pkg/domain"
	"admitto/pkg/platform/sentinel"
)

func TestInstitutionLookupByIDAndSlug(t *testing.T) {
	s := NewInMemoryInstitutionStore()
	inst := institution.Institution{
		ID:        id.InstitutionID(uuid.New()),
		Name:      "Test University",
		Slug:      "test-university",
		CreatedAt: time.Now(),
	}
	s.Put(inst)

	byID, err := s.FindByID(context.Background(), inst.ID)
	if err != nil {
		t.Fatalf("expected institution by id, got %v", err)
	}
	if byID.Slug != inst.Slug {
		t.Fatalf("expected slug %q, got %q", inst.Slug, byID.Slug)
	}

	bySlug, err := s.FindBySlug(context.Background(), "test-university")
	if err != nil {
		t.Fatalf("expected institution by slug, got %v", err)
	}
	if bySlug.ID != inst.ID {
		t.Fatalf("expected id %s, got %s", inst.ID, bySlug.ID)
	}

	if _, err := s.FindBySlug(context.Background(), "nowhere-university"); !errors.Is(err, sentinel.ErrNotFound) {
		t.Fatalf("expected not found for unknown slug, got %v", err)
	}
}

func TestMembershipLookupAndRemoval(t *testing.T) {
	s := NewInMemoryMembershipStore()
	institutionID := id.InstitutionID(uuid.New())
	userID := id.UserID(uuid.New())
	s.Put(institution.Membership{
		InstitutionID: institutionID,
		UserID:        userID,
		Role:          institution.RoleReviewer,
	})

	m, err := s.FindMembership(context.Background(), institutionID, userID)
	if err != nil {
		t.Fatalf("expected membership, got %v", err)
	}
	if m.Role != institution.RoleReviewer {
		t.Fatalf("expected reviewer role, got %q", m.Role)
	}

	s.Remove(institutionID, userID)
	if _, err := s.FindMembership(context.Background(), institutionID, userID); !errors.Is(err, sentinel.ErrNotFound) {
		t.Fatalf("expected not found after removal, got %v", err)
	}
}
