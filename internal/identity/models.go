package identity

import (
	"time"

	id "admitto/pkg/domain"
)

// User is the internal user row. Exactly one row exists per external
// identity-provider ID; the sync service is the only writer.
//
// Invariants:
//   - ExternalID is unique and immutable once set
//   - Email is required; an event without a resolvable primary email never
//     creates a row
//   - ID is minted on first insert and never changes across upserts
type User struct {
	ID                 id.UserID `json:"id"`
	ExternalID         string    `json:"external_id"`
	Email              string    `json:"email"`
	FirstName          string    `json:"first_name,omitempty"`
	LastName           string    `json:"last_name,omitempty"`
	AvatarURL          string    `json:"avatar_url,omitempty"`
	Phone              string    `json:"phone,omitempty"`
	OnboardingComplete bool      `json:"onboarding_complete"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
