package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"admitto/internal/application"
	id "admitto/pkg/domain"
)

func seedApplications(s *InMemoryApplicationStore, scope application.Scope, n int) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		s.Put(application.Application{
			ID:            id.ApplicationID(uuid.New()),
			InstitutionID: scope.InstitutionID,
			CourseID:      scope.CourseID,
			Status:        application.StatusSubmitted,
			Applicant:     application.Applicant{Email: fmt.Sprintf("a%d@example.edu", i)},
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
			UpdatedAt:     base.Add(time.Duration(i) * time.Minute),
		})
	}
}

func offset(n int) *int { return &n }

func newScope() application.Scope {
	return application.Scope{
		InstitutionID: id.InstitutionID(uuid.New()),
		CourseID:      id.CourseID(uuid.New()),
	}
}

func TestListNewestFirst(t *testing.T) {
	s := NewInMemoryApplicationStore()
	scope := newScope()
	seedApplications(s, scope, 5)

	apps, err := s.List(context.Background(), scope, application.ListFilter{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(apps) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(apps))
	}
	for i := 1; i < len(apps); i++ {
		if apps[i].CreatedAt.After(apps[i-1].CreatedAt) {
			t.Fatalf("expected newest-first ordering at index %d", i)
		}
	}
}

func TestListScopedToCourse(t *testing.T) {
	s := NewInMemoryApplicationStore()
	scope := newScope()
	seedApplications(s, scope, 3)

	other := application.Scope{InstitutionID: scope.InstitutionID, CourseID: id.CourseID(uuid.New())}
	seedApplications(s, other, 2)

	apps, err := s.List(context.Background(), scope, application.ListFilter{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(apps) != 3 {
		t.Fatalf("expected course scoping to exclude other courses, got %d rows", len(apps))
	}
}

func TestListWindow(t *testing.T) {
	s := NewInMemoryApplicationStore()
	scope := newScope()
	seedApplications(s, scope, 100)

	apps, err := s.List(context.Background(), scope, application.ListFilter{Limit: 10, Offset: offset(20)})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(apps) != 10 {
		t.Fatalf("expected window of 10, got %d", len(apps))
	}

	// Offset counts from the newest row: offset 20 skips the 20 newest.
	all, _ := s.List(context.Background(), scope, application.ListFilter{})
	if apps[0].ID != all[20].ID {
		t.Fatalf("expected window to start at the 21st newest row")
	}
	if apps[9].ID != all[29].ID {
		t.Fatalf("expected window to end at the 30th newest row")
	}
}

func TestListOffsetPastEnd(t *testing.T) {
	s := NewInMemoryApplicationStore()
	scope := newScope()
	seedApplications(s, scope, 5)

	apps, err := s.List(context.Background(), scope, application.ListFilter{Limit: 10, Offset: offset(50)})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(apps) != 0 {
		t.Fatalf("expected empty window past end, got %d rows", len(apps))
	}
}

func TestListStatusFilter(t *testing.T) {
	s := NewInMemoryApplicationStore()
	scope := newScope()
	seedApplications(s, scope, 4)
	accepted := application.Application{
		ID:            id.ApplicationID(uuid.New()),
		InstitutionID: scope.InstitutionID,
		CourseID:      scope.CourseID,
		Status:        application.StatusAccepted,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	s.Put(accepted)

	status := application.StatusAccepted
	apps, err := s.List(context.Background(), scope, application.ListFilter{Status: &status})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(apps) != 1 || apps[0].ID != accepted.ID {
		t.Fatalf("expected only the accepted application, got %d rows", len(apps))
	}
}
