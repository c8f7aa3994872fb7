package identity_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"go.uber.org/mock/gomock"

	"admitto/internal/identity"
	"admitto/internal/identity/mocks"
	"admitto/internal/identity/store"
	dErrors "admitto/pkg/domain-errors"
)

func newService(t *testing.T) (*identity.Service, *store.InMemoryUserStore) {
	t.Helper()
	users := store.NewInMemoryUserStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return identity.NewService(users, logger), users
}

func TestApplyUpsertCreatesUser(t *testing.T) {
	svc, users := newService(t)
	ctx := context.Background()

	outcome, err := svc.Apply(ctx, identity.UserUpserted{
		ExternalID:   "user_abc",
		PrimaryEmail: "ada@example.edu",
		FirstName:    "Ada",
		LastName:     "Lovelace",
	})
	if err != nil {
		t.Fatalf("expected upsert to apply, got %v", err)
	}
	if outcome != identity.OutcomeUpserted {
		t.Fatalf("expected upserted outcome, got %q", outcome)
	}

	user, err := users.FindByExternalID(ctx, "user_abc")
	if err != nil {
		t.Fatalf("expected user row, got %v", err)
	}
	if user.Email != "ada@example.edu" {
		t.Fatalf("expected email synced, got %q", user.Email)
	}
	if user.ID.IsNil() {
		t.Fatalf("expected internal ID minted")
	}
}

func TestApplyUpsertIsIdempotent(t *testing.T) {
	svc, users := newService(t)
	ctx := context.Background()

	event := identity.UserUpserted{ExternalID: "user_abc", PrimaryEmail: "ada@example.edu"}
	if _, err := svc.Apply(ctx, event); err != nil {
		t.Fatalf("first apply failed: %v", err)
	}
	first, _ := users.FindByExternalID(ctx, "user_abc")

	if _, err := svc.Apply(ctx, event); err != nil {
		t.Fatalf("second apply failed: %v", err)
	}
	if users.Len() != 1 {
		t.Fatalf("expected one row after double apply, got %d", users.Len())
	}
	second, _ := users.FindByExternalID(ctx, "user_abc")
	if second.ID != first.ID {
		t.Fatalf("expected internal ID preserved across re-apply")
	}
	if second.CreatedAt != first.CreatedAt {
		t.Fatalf("expected creation time preserved across re-apply")
	}
}

func TestApplyUpsertOverwritesMutableFields(t *testing.T) {
	svc, users := newService(t)
	ctx := context.Background()

	if _, err := svc.Apply(ctx, identity.UserUpserted{
		ExternalID:   "user_abc",
		PrimaryEmail: "old@example.edu",
		FirstName:    "A",
	}); err != nil {
		t.Fatalf("initial apply failed: %v", err)
	}
	if _, err := svc.Apply(ctx, identity.UserUpserted{
		ExternalID:   "user_abc",
		PrimaryEmail: "new@example.edu",
		FirstName:    "Ada",
	}); err != nil {
		t.Fatalf("update apply failed: %v", err)
	}

	user, _ := users.FindByExternalID(ctx, "user_abc")
	if user.Email != "new@example.edu" || user.FirstName != "Ada" {
		t.Fatalf("expected mutable fields overwritten, got %q %q", user.Email, user.FirstName)
	}
}

func TestApplyDeleteIsNoOpWhenAbsent(t *testing.T) {
	svc, _ := newService(t)

	outcome, err := svc.Apply(context.Background(), identity.UserDeleted{ExternalID: "user_never_seen"})
	if err != nil {
		t.Fatalf("expected deletion of absent user to succeed, got %v", err)
	}
	if outcome != identity.OutcomeDeleted {
		t.Fatalf("expected deleted outcome, got %q", outcome)
	}
}

func TestApplyDeleteRemovesUser(t *testing.T) {
	svc, users := newService(t)
	ctx := context.Background()

	if _, err := svc.Apply(ctx, identity.UserUpserted{ExternalID: "user_abc", PrimaryEmail: "a@example.edu"}); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if _, err := svc.Apply(ctx, identity.UserDeleted{ExternalID: "user_abc"}); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if users.Len() != 0 {
		t.Fatalf("expected row removed, got %d rows", users.Len())
	}
}

func TestApplyUnhandledIsSkipped(t *testing.T) {
	svc, users := newService(t)

	outcome, err := svc.Apply(context.Background(), identity.Unhandled{Type: "session.created"})
	if err != nil {
		t.Fatalf("expected unhandled event to be acknowledged, got %v", err)
	}
	if outcome != identity.OutcomeSkipped {
		t.Fatalf("expected skipped outcome, got %q", outcome)
	}
	if users.Len() != 0 {
		t.Fatalf("expected no state change for unhandled event")
	}
}

func TestApplySurfacesStoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserStore(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := identity.NewService(users, logger)

	boom := errors.New("connection reset")
	users.EXPECT().
		UpsertByExternalID(gomock.Any(), gomock.Any()).
		Return(identity.User{}, boom)

	_, err := svc.Apply(context.Background(), identity.UserUpserted{
		ExternalID:   "user_abc",
		PrimaryEmail: "a@example.edu",
	})
	if !dErrors.HasCode(err, dErrors.CodeInternal) {
		t.Fatalf("expected internal error code, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected cause preserved, got %v", err)
	}
}
