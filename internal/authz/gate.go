// Package authz is the single authorization chokepoint. Every protected
// resource handler resolves access through the Gate before touching tenant
// data, then checks the returned role against the operation's permitted set.
package authz

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"admitto/internal/identity"
	"admitto/internal/institution"
	"admitto/internal/platform/metrics"
	id "admitto/pkg/domain"
	dErrors "admitto/pkg/domain-errors"
	"admitto/pkg/platform/audit"
	"admitto/pkg/platform/sentinel"
)

// Wire-facing denial messages. Both map to 403, but logs, metrics, and audit
// events keep the cases distinguishable.
const (
	MsgAccessDenied           = "access denied to this institution"
	MsgInsufficientPermission = "insufficient permission"
)

// UserResolver resolves an external identity to the internal user row.
type UserResolver interface {
	FindByExternalID(ctx context.Context, externalID string) (identity.User, error)
}

// MembershipReader looks up the membership row for (institution, user).
type MembershipReader interface {
	FindMembership(ctx context.Context, institutionID id.InstitutionID, userID id.UserID) (institution.Membership, error)
}

// Access is a granted resolution: the caller's internal user ID and their
// role within the target institution.
type Access struct {
	UserID id.UserID
	Role   institution.Role
}

// RequireRole checks the access role against the operation's permitted set.
// A role outside the set is the distinct "insufficient permission" outcome,
// not "no membership at all".
func (a Access) RequireRole(roles ...institution.Role) error {
	for _, role := range roles {
		if a.Role == role {
			return nil
		}
	}
	return dErrors.New(dErrors.CodeForbidden, MsgInsufficientPermission)
}

// Gate resolves a caller's session identity to an internal user and
// institution role. It holds no cache: every call re-resolves from current
// state so membership changes take effect on the next call.
type Gate struct {
	users       UserResolver
	memberships MembershipReader
	logger      *slog.Logger
	metrics     *metrics.Metrics
	auditor     *audit.Publisher
	tracer      trace.Tracer
}

// Option configures a Gate.
type Option func(*Gate)

// WithMetrics attaches denial metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) { g.metrics = m }
}

// WithAuditor attaches an audit publisher.
func WithAuditor(a *audit.Publisher) Option {
	return func(g *Gate) { g.auditor = a }
}

func NewGate(users UserResolver, memberships MembershipReader, logger *slog.Logger, opts ...Option) *Gate {
	g := &Gate{
		users:       users,
		memberships: memberships,
		logger:      logger,
		tracer:      otel.Tracer("admitto/authz"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// ResolveAccess runs the two hard gates in order: external identity to
// internal user, then (institution, user) to membership. Any miss denies;
// nothing is thrown past this boundary. A store failure is an internal
// error, not a denial, so callers can answer 500 instead of a misleading
// 403.
func (g *Gate) ResolveAccess(ctx context.Context, externalID string, institutionID id.InstitutionID) (Access, error) {
	ctx, span := g.tracer.Start(ctx, "authz.ResolveAccess",
		trace.WithAttributes(attribute.String("institution_id", institutionID.String())))
	defer span.End()

	if externalID == "" {
		return Access{}, g.deny(ctx, audit.ReasonUnknownIdentity, externalID, institutionID, id.UserID{})
	}

	user, err := g.users.FindByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Access{}, g.deny(ctx, audit.ReasonUnknownIdentity, externalID, institutionID, id.UserID{})
		}
		return Access{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve caller identity")
	}

	membership, err := g.memberships.FindMembership(ctx, institutionID, user.ID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Access{}, g.deny(ctx, audit.ReasonNoMembership, externalID, institutionID, user.ID)
		}
		return Access{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve membership")
	}

	return Access{UserID: membership.UserID, Role: membership.Role}, nil
}

func (g *Gate) deny(ctx context.Context, reason, externalID string, institutionID id.InstitutionID, userID id.UserID) error {
	g.logger.WarnContext(ctx, "access denied",
		"reason", reason,
		"external_id", externalID,
		"institution_id", institutionID.String(),
	)
	g.metrics.RecordAccessDenied(reason)
	if g.auditor != nil {
		if err := g.auditor.Emit(ctx, audit.Event{
			Category:   audit.CategorySecurity,
			Action:     audit.ActionAccessDenied,
			UserID:     userID,
			ExternalID: externalID,
			Subject:    institutionID.String(),
			Reason:     reason,
		}); err != nil {
			g.logger.WarnContext(ctx, "failed to emit audit event",
				"action", audit.ActionAccessDenied,
				"error", err,
			)
		}
	}
	return dErrors.New(dErrors.CodeForbidden, MsgAccessDenied)
}
