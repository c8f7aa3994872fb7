package audit

import (
	"time"

	id "admitto/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose. This
// enables different retention policies and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance,
	// e.g. user creation and deletion driven by provider lifecycle events.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring:
	// authorization denials, signature rejections, replayed deliveries.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility, e.g. acknowledged-but-ignored event types.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	UserID    id.UserID
	Subject   string
	Action    Action
	Decision  string
	Reason    string
	// ExternalID correlates provider lifecycle events before an internal
	// user exists (or after it has been removed).
	ExternalID string
	// DeliveryID is the provider's delivery identifier, for correlating a
	// failure with the provider's redelivery attempts.
	DeliveryID string
	RequestID  string
	// ClientIP and Device enrich security events with caller metadata.
	ClientIP string
	Device   string
}

// Action names the audited operation.
type Action string

const (
	ActionUserSynced         Action = "user_synced"
	ActionUserDeleted        Action = "user_deleted"
	ActionEventIgnored       Action = "event_ignored"
	ActionWebhookRejected    Action = "webhook_rejected"
	ActionDeliveryReplayed   Action = "delivery_replayed"
	ActionAccessDenied       Action = "access_denied"
	ActionInsufficientRole   Action = "insufficient_role"
	ActionApplicationsListed Action = "applications_listed"
)

// Denial reasons recorded on access_denied events. The wire response
// collapses both into 403; telemetry must not.
const (
	ReasonUnknownIdentity = "unknown_identity"
	ReasonNoMembership    = "no_membership"
)
