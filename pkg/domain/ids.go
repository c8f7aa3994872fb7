// Package domain holds shared domain primitives: typed identifiers used
// across services and stores. Typed IDs prevent cross-entity assignment at
// compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "admitto/pkg/domain-errors"
)

// Typed identifiers. Each wraps a UUID so the compiler rejects passing an
// InstitutionID where a UserID is expected.
type (
	// UserID identifies an internal user row. Minted by the identity sync
	// service on first insert, never by request handlers.
	UserID uuid.UUID

	// InstitutionID identifies an institution (tenant).
	InstitutionID uuid.UUID

	// CourseID identifies a course within an institution.
	CourseID uuid.UUID

	// ApplicationID identifies a submitted application.
	ApplicationID uuid.UUID
)

func (id UserID) String() string        { return uuid.UUID(id).String() }
func (id InstitutionID) String() string { return uuid.UUID(id).String() }
func (id CourseID) String() string      { return uuid.UUID(id).String() }
func (id ApplicationID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id InstitutionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id CourseID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id ApplicationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// Text marshaling keeps typed IDs rendering as canonical UUID strings in JSON
// bodies and log output.
func (id UserID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id InstitutionID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id CourseID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id ApplicationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(data []byte) error { return (*uuid.UUID)(id).UnmarshalText(data) }
func (id *InstitutionID) UnmarshalText(data []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(data)
}
func (id *CourseID) UnmarshalText(data []byte) error { return (*uuid.UUID)(id).UnmarshalText(data) }
func (id *ApplicationID) UnmarshalText(data []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(data)
}

// parseUUID enforces the shared invariant: IDs must be valid, non-empty,
// non-nil UUIDs. Applied at trust boundaries (URL params, tokens).
func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return parsed, nil
}

// ParseUserID validates and converts a string into a UserID.
func ParseUserID(s string) (UserID, error) {
	parsed, err := parseUUID(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(parsed), nil
}

// ParseInstitutionID validates and converts a string into an InstitutionID.
func ParseInstitutionID(s string) (InstitutionID, error) {
	parsed, err := parseUUID(s)
	if err != nil {
		return InstitutionID{}, err
	}
	return InstitutionID(parsed), nil
}

// ParseCourseID validates and converts a string into a CourseID.
func ParseCourseID(s string) (CourseID, error) {
	parsed, err := parseUUID(s)
	if err != nil {
		return CourseID{}, err
	}
	return CourseID(parsed), nil
}

// ParseApplicationID validates and converts a string into an ApplicationID.
func ParseApplicationID(s string) (ApplicationID, error) {
	parsed, err := parseUUID(s)
	if err != nil {
		return ApplicationID{}, err
	}
	return ApplicationID(parsed), nil
}
