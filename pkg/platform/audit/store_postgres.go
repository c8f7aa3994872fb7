package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "admitto/pkg/domain"
)

// PostgresStore persists audit events in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed audit store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append writes one audit event row.
func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	query := `
		INSERT INTO audit_events
			(id, category, action, occurred_at, user_id, subject, decision,
			 reason, external_id, delivery_id, request_id, client_ip, device)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	var userID any
	if !event.UserID.IsNil() {
		userID = uuid.UUID(event.UserID)
	}
	_, err := s.db.ExecContext(ctx, query,
		uuid.New(), string(event.Category), string(event.Action),
		event.Timestamp, userID, event.Subject, event.Decision,
		event.Reason, event.ExternalID, event.DeliveryID, event.RequestID,
		event.ClientIP, event.Device,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// ListByUser returns the audit trail for one internal user, oldest first.
func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]Event, error) {
	query := `
		SELECT category, action, occurred_at, subject, decision, reason,
		       external_id, delivery_id, request_id, client_ip, device
		FROM audit_events
		WHERE user_id = $1
		ORDER BY occurred_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		e := Event{UserID: userID}
		var category, action string
		if err := rows.Scan(&category, &action, &e.Timestamp, &e.Subject,
			&e.Decision, &e.Reason, &e.ExternalID, &e.DeliveryID,
			&e.RequestID, &e.ClientIP, &e.Device); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = EventCategory(category)
		e.Action = Action(action)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
