// Package application holds the gated resource read path: institution-scoped
// application listing behind the authorization gate.
package application

import (
	"time"

	id "admitto/pkg/domain"
)

// Status is the closed set of application lifecycle states.
type Status string

const (
	StatusSubmitted   Status = "submitted"
	StatusUnderReview Status = "under_review"
	StatusAccepted    Status = "accepted"
	StatusRejected    Status = "rejected"
	StatusWithdrawn   Status = "withdrawn"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusSubmitted, StatusUnderReview, StatusAccepted, StatusRejected, StatusWithdrawn:
		return true
	}
	return false
}

// Applicant carries the applicant-supplied identity fields attached to an
// application at submission time.
type Applicant struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// Application is one admission application, always scoped to an institution
// and one of its courses.
type Application struct {
	ID            id.ApplicationID `json:"id"`
	InstitutionID id.InstitutionID `json:"institution_id"`
	CourseID      id.CourseID      `json:"course_id"`
	Status        Status           `json:"status"`
	Applicant     Applicant        `json:"applicant"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}
