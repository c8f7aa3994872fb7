package webhook_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"admitto/internal/identity"
	"admitto/internal/identity/store"
	"admitto/internal/webhook"
)

const handlerSecret = "handler-test-secret"

type ingestFixture struct {
	router   http.Handler
	users    *store.InMemoryUserStore
	verifier *webhook.Verifier
}

func newIngestFixture(t *testing.T) *ingestFixture {
	t.Helper()
	users := store.NewInMemoryUserStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sync := identity.NewService(users, logger)
	verifier := webhook.NewVerifier(handlerSecret)

	h := webhook.New(verifier, sync, logger,
		webhook.WithDeliveryLog(webhook.NewInMemoryDeliveryLog()),
	)
	r := chi.NewRouter()
	h.Register(r)
	return &ingestFixture{router: r, users: users, verifier: verifier}
}

// deliver posts a signed delivery and returns the recorder.
func (f *ingestFixture) deliver(t *testing.T, deliveryID, body string) *httptest.ResponseRecorder {
	t.Helper()
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/identity", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("webhook-id", deliveryID)
	req.Header.Set("webhook-timestamp", ts)
	req.Header.Set("webhook-signature", f.verifier.Sign(deliveryID, ts, []byte(body)))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

const createdBody = `{
	"type": "user.created",
	"data": {
		"id": "user_abc",
		"email_addresses": [{"id": "eml_1", "email_address": "ada@example.edu"}],
		"primary_email_address_id": "eml_1",
		"first_name": "Ada",
		"last_name": "Lovelace"
	}
}`

const deletedBody = `{
	"type": "user.deleted",
	"data": {"id": "user_abc", "deleted": true}
}`

func TestDeliveryLifecycleIsIdempotent(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	// First delivery creates the user.
	if rec := f.deliver(t, "msg_1", createdBody); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for first delivery, got %d: %s", rec.Code, rec.Body.String())
	}
	user, err := f.users.FindByExternalID(ctx, "user_abc")
	if err != nil {
		t.Fatalf("expected user row after creation, got %v", err)
	}
	if user.Email != "ada@example.edu" {
		t.Fatalf("expected synced email, got %q", user.Email)
	}

	// Redelivery of the same event converges on the same single row.
	if rec := f.deliver(t, "msg_1", createdBody); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for redelivery, got %d", rec.Code)
	}
	if f.users.Len() != 1 {
		t.Fatalf("expected exactly one row after redelivery, got %d", f.users.Len())
	}
	again, _ := f.users.FindByExternalID(ctx, "user_abc")
	if again.ID != user.ID {
		t.Fatalf("expected internal ID stable across redelivery")
	}

	// Deletion removes the row; redelivered deletion stays 200.
	if rec := f.deliver(t, "msg_2", deletedBody); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for deletion, got %d", rec.Code)
	}
	if f.users.Len() != 0 {
		t.Fatalf("expected row removed, got %d rows", f.users.Len())
	}
	if rec := f.deliver(t, "msg_2", deletedBody); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for redelivered deletion, got %d", rec.Code)
	}
}

func TestUnknownEventTypeAcknowledged(t *testing.T) {
	f := newIngestFixture(t)

	body := `{"type": "organization.created", "data": {"id": "org_1"}}`
	rec := f.deliver(t, "msg_3", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for unhandled type, got %d", rec.Code)
	}
	if f.users.Len() != 0 {
		t.Fatalf("expected no rows for unhandled type")
	}
}

func TestUnsignedDeliveryRejected(t *testing.T) {
	f := newIngestFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/identity", bytes.NewBufferString(createdBody))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without delivery headers, got %d", rec.Code)
	}
	if f.users.Len() != 0 {
		t.Fatalf("expected no state change on rejected delivery")
	}
}

func TestTamperedDeliveryRejected(t *testing.T) {
	f := newIngestFixture(t)

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/identity", bytes.NewBufferString(createdBody))
	req.Header.Set("webhook-id", "msg_4")
	req.Header.Set("webhook-timestamp", ts)
	req.Header.Set("webhook-signature", f.verifier.Sign("msg_4", ts, []byte("different body")))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for signature mismatch, got %d", rec.Code)
	}
}

func TestMissingRequiredFieldRejected(t *testing.T) {
	f := newIngestFixture(t)

	// Verified envelope, but the payload has no resolvable primary email.
	body := `{"type": "user.created", "data": {"id": "user_abc"}}`
	rec := f.deliver(t, "msg_5", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing required data, got %d", rec.Code)
	}
	if f.users.Len() != 0 {
		t.Fatalf("expected no row created from invalid payload")
	}
}

func TestDeletionWithoutExternalIDYields500(t *testing.T) {
	f := newIngestFixture(t)

	// The provider retries 5xx, and a deletion the system could not attribute
	// must stay on that retry path rather than be dropped with a 4xx.
	body := `{"type": "user.deleted", "data": {"deleted": true}}`
	rec := f.deliver(t, "msg_7", body)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for deletion without external id, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Body.String(); got != "Error occurred" {
		t.Fatalf("unexpected error body %q", got)
	}
}

func TestPersistenceFailureYields500(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sync := identity.NewService(failingUserStore{}, logger)
	verifier := webhook.NewVerifier(handlerSecret)
	h := webhook.New(verifier, sync, logger)
	r := chi.NewRouter()
	h.Register(r)

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/identity", bytes.NewBufferString(createdBody))
	req.Header.Set("webhook-id", "msg_6")
	req.Header.Set("webhook-timestamp", ts)
	req.Header.Set("webhook-signature", verifier.Sign("msg_6", ts, []byte(createdBody)))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on persistence failure, got %d", rec.Code)
	}
}

type failingUserStore struct{}

func (failingUserStore) UpsertByExternalID(context.Context, identity.User) (identity.User, error) {
	return identity.User{}, io.ErrUnexpectedEOF
}

func (failingUserStore) DeleteByExternalID(context.Context, string) error {
	return io.ErrUnexpectedEOF
}

func (failingUserStore) FindByExternalID(context.Context, string) (identity.User, error) {
	return identity.User{}, io.ErrUnexpectedEOF
}
