package institution

import (
	"time"

	id "admitto/pkg/domain"
)

// Institution is a tenant organization. Created out-of-band; read-only from
// this service's perspective.
type Institution struct {
	ID        id.InstitutionID `json:"id"`
	Name      string           `json:"name"`
	Slug      string           `json:"slug"`
	CreatedAt time.Time        `json:"created_at"`
}

// Role is the closed set of per-institution roles. The membership role is
// the sole source of truth for authorization decisions; no other signal
// substitutes for it.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleReviewer Role = "reviewer"
	RoleMember   Role = "member"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleReviewer, RoleMember:
		return true
	}
	return false
}

// Membership grants a user a role within one institution. At most one row
// exists per (institution, user) pair.
type Membership struct {
	InstitutionID id.InstitutionID `json:"institution_id"`
	UserID        id.UserID        `json:"user_id"`
	Role          Role             `json:"role"`
	CreatedAt     time.Time        `json:"created_at"`
}
