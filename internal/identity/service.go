package identity

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"admitto/internal/platform/metrics"
	id "admitto/pkg/domain"
	dErrors "admitto/pkg/domain-errors"
	"admitto/pkg/platform/audit"
	"admitto/pkg/requestcontext"
)

// Outcome is the single result of applying one event. One event in, one
// outcome out.
type Outcome string

const (
	OutcomeUpserted Outcome = "upserted"
	OutcomeDeleted  Outcome = "deleted"
	OutcomeSkipped  Outcome = "skipped"
)

// UserStore is the persistence boundary for user rows. Implementations must
// make UpsertByExternalID atomic per external ID (a uniqueness constraint,
// not application-level locking) and DeleteByExternalID a successful no-op
// when the row is absent.
type UserStore interface {
	UpsertByExternalID(ctx context.Context, user User) (User, error)
	DeleteByExternalID(ctx context.Context, externalID string) error
	FindByExternalID(ctx context.Context, externalID string) (User, error)
}

// Service applies normalized lifecycle events to persisted user state. It
// owns idempotency: re-applying the same event leaves the same final state.
// Persistence failures are returned, never retried here; the provider's
// redelivery is the retry path.
type Service struct {
	users   UserStore
	logger  *slog.Logger
	metrics *metrics.Metrics
	auditor *audit.Publisher
	tracer  trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics attaches sync metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAuditor attaches an audit publisher.
func WithAuditor(a *audit.Publisher) Option {
	return func(s *Service) { s.auditor = a }
}

func NewService(users UserStore, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		users:  users,
		logger: logger,
		tracer: otel.Tracer("admitto/identity"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Apply maps one normalized event to one state transition. Each transition
// is last-write-wins against the committed row state at the time it is
// applied; no in-order delivery is assumed across separate calls.
func (s *Service) Apply(ctx context.Context, event Event) (Outcome, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "identity.Apply")
	defer span.End()
	defer func() {
		s.metrics.ObserveSyncDuration(time.Since(start).Seconds())
	}()

	switch e := event.(type) {
	case UserUpserted:
		span.SetAttributes(attribute.String("event", "user_upserted"))
		return s.applyUpsert(ctx, e)
	case UserDeleted:
		span.SetAttributes(attribute.String("event", "user_deleted"))
		return s.applyDelete(ctx, e)
	case Unhandled:
		span.SetAttributes(attribute.String("event", "unhandled"))
		s.metrics.RecordUserSynced(string(OutcomeSkipped))
		s.emit(ctx, audit.Event{
			Category: audit.CategoryOperations,
			Action:   audit.ActionEventIgnored,
			Subject:  e.Type,
		})
		return OutcomeSkipped, nil
	default:
		return "", dErrors.New(dErrors.CodeInternal, "unknown event variant")
	}
}

func (s *Service) applyUpsert(ctx context.Context, e UserUpserted) (Outcome, error) {
	now := requestcontext.Now(ctx)
	user, err := s.users.UpsertByExternalID(ctx, User{
		// Candidate ID; the store keeps the existing one when the row exists.
		ID:         id.UserID(uuid.New()),
		ExternalID: e.ExternalID,
		Email:      e.PrimaryEmail,
		FirstName:  e.FirstName,
		LastName:   e.LastName,
		AvatarURL:  e.AvatarURL,
		Phone:      e.PrimaryPhone,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to upsert user",
			"external_id", e.ExternalID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sync user")
	}

	s.metrics.RecordUserSynced(string(OutcomeUpserted))
	s.emit(ctx, audit.Event{
		Category:   audit.CategoryCompliance,
		Action:     audit.ActionUserSynced,
		UserID:     user.ID,
		ExternalID: e.ExternalID,
	})
	return OutcomeUpserted, nil
}

func (s *Service) applyDelete(ctx context.Context, e UserDeleted) (Outcome, error) {
	if err := s.users.DeleteByExternalID(ctx, e.ExternalID); err != nil {
		s.logger.ErrorContext(ctx, "failed to delete user",
			"external_id", e.ExternalID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete user")
	}

	s.metrics.RecordUserSynced(string(OutcomeDeleted))
	s.emit(ctx, audit.Event{
		Category:   audit.CategoryCompliance,
		Action:     audit.ActionUserDeleted,
		ExternalID: e.ExternalID,
	})
	return OutcomeDeleted, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}
