package webhook

import (
	"encoding/json"

	"admitto/internal/identity"
	dErrors "admitto/pkg/domain-errors"
)

// Provider event types this system acts on. Everything else is acknowledged
// and ignored for forward compatibility.
const (
	TypeUserCreated = "user.created"
	TypeUserUpdated = "user.updated"
	TypeUserDeleted = "user.deleted"
)

// Raw payload shapes as the provider sends them. Email and phone lists carry
// provider-assigned IDs; the primary-* reference fields select one entry.
type userPayload struct {
	ID                    string         `json:"id"`
	EmailAddresses        []emailAddress `json:"email_addresses"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	PhoneNumbers          []phoneNumber  `json:"phone_numbers"`
	PrimaryPhoneNumberID  string         `json:"primary_phone_number_id"`
	FirstName             string         `json:"first_name"`
	LastName              string         `json:"last_name"`
	ImageURL              string         `json:"image_url"`
}

type emailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

type phoneNumber struct {
	ID          string `json:"id"`
	PhoneNumber string `json:"phone_number"`
}

// deletedPayload is the slimmer object shape the provider sends for
// deletions; only the external ID is meaningful.
type deletedPayload struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// Normalize classifies a verified envelope into exactly one lifecycle event.
// It is the only place raw payloads are inspected; downstream code switches
// over the closed identity.Event set.
func Normalize(envelope Envelope) (identity.Event, error) {
	switch envelope.Type {
	case TypeUserCreated, TypeUserUpdated:
		return normalizeUpsert(envelope.Data)
	case TypeUserDeleted:
		return normalizeDelete(envelope.Data)
	default:
		return identity.Unhandled{Type: envelope.Type}, nil
	}
}

func normalizeUpsert(data json.RawMessage) (identity.Event, error) {
	var payload userPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "malformed user payload")
	}
	if payload.ID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "user payload missing external id")
	}

	email := resolvePrimaryEmail(payload)
	if email == "" {
		// Email is required at creation time; without it no row may exist.
		return nil, dErrors.New(dErrors.CodeBadRequest, "no resolvable primary email address")
	}

	return identity.UserUpserted{
		ExternalID:   payload.ID,
		PrimaryEmail: email,
		FirstName:    payload.FirstName,
		LastName:     payload.LastName,
		AvatarURL:    payload.ImageURL,
		PrimaryPhone: resolvePrimaryPhone(payload),
	}, nil
}

func normalizeDelete(data json.RawMessage) (identity.Event, error) {
	// A deletion that cannot be attributed to an identity must not be
	// acknowledged; the internal code routes it to a retryable response.
	var payload deletedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, dErrors.New(dErrors.CodeInternal, "malformed deletion payload")
	}
	if payload.ID == "" {
		return nil, dErrors.New(dErrors.CodeInternal, "deletion payload missing external id")
	}
	return identity.UserDeleted{ExternalID: payload.ID}, nil
}

// resolvePrimaryEmail matches the primary reference against the attached
// email list. Returns "" when nothing resolves to a non-empty address.
func resolvePrimaryEmail(payload userPayload) string {
	for _, addr := range payload.EmailAddresses {
		if addr.ID == payload.PrimaryEmailAddressID {
			return addr.EmailAddress
		}
	}
	return ""
}

// resolvePrimaryPhone resolves the same way as email but absence is fine.
func resolvePrimaryPhone(payload userPayload) string {
	for _, phone := range payload.PhoneNumbers {
		if phone.ID == payload.PrimaryPhoneNumberID {
			return phone.PhoneNumber
		}
	}
	return ""
}
