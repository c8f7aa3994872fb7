package application_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"admitto/internal/application"
	"admitto/internal/application/store"
	id "admitto/pkg/domain"
	dErrors "admitto/pkg/domain-errors"
)

func seededService(t *testing.T, scope application.Scope, n int) *application.Service {
	t.Helper()
	s := store.NewInMemoryApplicationStore()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		s.Put(application.Application{
			ID:            id.ApplicationID(uuid.New()),
			InstitutionID: scope.InstitutionID,
			CourseID:      scope.CourseID,
			Status:        application.StatusSubmitted,
			CreatedAt:     base.Add(time.Duration(i) * time.Second),
			UpdatedAt:     base.Add(time.Duration(i) * time.Second),
		})
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return application.NewService(s, logger)
}

func offset(n int) *int { return &n }

func TestListOffsetWithoutLimitGetsDefaultWindow(t *testing.T) {
	scope := application.Scope{InstitutionID: id.InstitutionID(uuid.New()), CourseID: id.CourseID(uuid.New())}
	svc := seededService(t, scope, 120)

	apps, err := svc.List(context.Background(), id.UserID(uuid.New()), scope, application.ListFilter{Offset: offset(5)})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(apps) != 50 {
		t.Fatalf("expected default window of 50, got %d", len(apps))
	}
}

func TestListOffsetZeroWithoutLimitGetsDefaultWindow(t *testing.T) {
	scope := application.Scope{InstitutionID: id.InstitutionID(uuid.New()), CourseID: id.CourseID(uuid.New())}
	svc := seededService(t, scope, 120)

	// A supplied zero offset is still a supplied offset.
	apps, err := svc.List(context.Background(), id.UserID(uuid.New()), scope, application.ListFilter{Offset: offset(0)})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(apps) != 50 {
		t.Fatalf("expected default window of 50 from offset zero, got %d", len(apps))
	}
}

func TestListWithoutParamsReturnsEverything(t *testing.T) {
	scope := application.Scope{InstitutionID: id.InstitutionID(uuid.New()), CourseID: id.CourseID(uuid.New())}
	svc := seededService(t, scope, 120)

	apps, err := svc.List(context.Background(), id.UserID(uuid.New()), scope, application.ListFilter{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(apps) != 120 {
		t.Fatalf("expected unwindowed listing, got %d", len(apps))
	}
}

func TestListNegativeOffsetTreatedAsZero(t *testing.T) {
	scope := application.Scope{InstitutionID: id.InstitutionID(uuid.New()), CourseID: id.CourseID(uuid.New())}
	svc := seededService(t, scope, 10)

	apps, err := svc.List(context.Background(), id.UserID(uuid.New()), scope, application.ListFilter{Offset: offset(-3), Limit: 4})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(apps) != 4 {
		t.Fatalf("expected window from start, got %d", len(apps))
	}
}

type failingLister struct{}

func (failingLister) List(context.Context, application.Scope, application.ListFilter) ([]application.Application, error) {
	return nil, errors.New("connection reset")
}

func TestListWrapsStoreFailure(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := application.NewService(failingLister{}, logger)

	scope := application.Scope{InstitutionID: id.InstitutionID(uuid.New()), CourseID: id.CourseID(uuid.New())}
	_, err := svc.List(context.Background(), id.UserID(uuid.New()), scope, application.ListFilter{})
	if !dErrors.HasCode(err, dErrors.CodeInternal) {
		t.Fatalf("expected internal error code, got %v", err)
	}
}
