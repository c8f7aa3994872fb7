package application

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	id "admitto/pkg/domain"
	dErrors "admitto/pkg/domain-errors"
	"admitto/pkg/platform/audit"
)

// defaultWindow is the page size applied when the caller gives an offset
// without a limit.
const defaultWindow = 50

// Scope pins a listing to one course within one institution. Both IDs come
// from the URL path, never from the query string.
type Scope struct {
	InstitutionID id.InstitutionID
	CourseID      id.CourseID
}

// ListFilter narrows and windows a listing. A nil Status means all statuses;
// a nil Offset means start at the beginning. Limit <= 0 means no explicit
// window. Offset is a pointer because a supplied zero is not the same as
// absent: any supplied offset without a limit gets the default window.
type ListFilter struct {
	Status *Status
	Limit  int
	Offset *int
}

// Start resolves the window's start index. Stores use this instead of
// inspecting Offset directly.
func (f ListFilter) Start() int {
	if f.Offset == nil || *f.Offset < 0 {
		return 0
	}
	return *f.Offset
}

// normalize applies the windowing defaults so stores see a fully resolved
// filter.
func (f ListFilter) normalize() ListFilter {
	if f.Offset != nil && *f.Offset < 0 {
		f.Offset = nil
	}
	if f.Limit <= 0 {
		f.Limit = 0
		if f.Offset != nil {
			f.Limit = defaultWindow
		}
	}
	return f
}

// Lister reads application rows for one scope, newest first.
type Lister interface {
	List(ctx context.Context, scope Scope, filter ListFilter) ([]Application, error)
}

// Service is the application query layer. It carries no write path; rows are
// created by the applicant-facing submission surface.
type Service struct {
	store   Lister
	logger  *slog.Logger
	auditor *audit.Publisher
	tracer  trace.Tracer
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithAuditor attaches an audit publisher.
func WithAuditor(a *audit.Publisher) ServiceOption {
	return func(s *Service) { s.auditor = a }
}

func NewService(store Lister, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		logger: logger,
		tracer: otel.Tracer("admitto/application"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// List returns the filtered window of applications for the scope, newest
// first. The caller's access must already be resolved; the viewer ID is only
// used for the audit trail.
func (s *Service) List(ctx context.Context, viewer id.UserID, scope Scope, filter ListFilter) ([]Application, error) {
	ctx, span := s.tracer.Start(ctx, "application.List",
		trace.WithAttributes(
			attribute.String("institution_id", scope.InstitutionID.String()),
			attribute.String("course_id", scope.CourseID.String()),
		))
	defer span.End()

	apps, err := s.store.List(ctx, scope, filter.normalize())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list applications")
	}

	if s.auditor != nil {
		if err := s.auditor.Emit(ctx, audit.Event{
			Category: audit.CategoryCompliance,
			Action:   audit.ActionApplicationsListed,
			UserID:   viewer,
			Subject:  scope.CourseID.String(),
		}); err != nil {
			s.logger.WarnContext(ctx, "failed to emit audit event",
				"action", audit.ActionApplicationsListed,
				"error", err,
			)
		}
	}

	return apps, nil
}
