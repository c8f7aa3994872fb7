package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"admitto/internal/identity"
	id "admitto/pkg/domain"
	"admitto/pkg/platform/sentinel"
)

// PostgresUserStore persists user rows in PostgreSQL. The unique index on
// external_id is the enforcement mechanism for one-row-per-external-id under
// concurrent upserts; there is no application-level locking.
type PostgresUserStore struct {
	db *sql.DB
}

// NewPostgresUserStore constructs a PostgreSQL-backed user store.
func NewPostgresUserStore(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

// UpsertByExternalID inserts the row or overwrites its mutable fields in
// place. ON CONFLICT keeps the original internal id, created_at, and
// onboarding flag, so re-applying the same event is a clean overwrite.
func (s *PostgresUserStore) UpsertByExternalID(ctx context.Context, user identity.User) (identity.User, error) {
	query := `
		INSERT INTO users
			(id, external_id, email, first_name, last_name, avatar_url, phone,
			 onboarding_complete, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8, $9)
		ON CONFLICT (external_id) DO UPDATE SET
			email = EXCLUDED.email,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			avatar_url = EXCLUDED.avatar_url,
			phone = EXCLUDED.phone,
			updated_at = EXCLUDED.updated_at
		RETURNING id, external_id, email, first_name, last_name, avatar_url,
			phone, onboarding_complete, created_at, updated_at
	`
	row := s.db.QueryRowContext(ctx, query,
		uuid.UUID(user.ID), user.ExternalID, user.Email, user.FirstName,
		user.LastName, user.AvatarURL, user.Phone, user.CreatedAt, user.UpdatedAt,
	)
	stored, err := scanUser(row)
	if err != nil {
		return identity.User{}, fmt.Errorf("upsert user: %w", err)
	}
	return stored, nil
}

// DeleteByExternalID removes the row keyed by external ID. Deleting an
// absent row is a successful no-op.
func (s *PostgresUserStore) DeleteByExternalID(ctx context.Context, externalID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE external_id = $1`, externalID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) FindByExternalID(ctx context.Context, externalID string) (identity.User, error) {
	query := `
		SELECT id, external_id, email, first_name, last_name, avatar_url,
			phone, onboarding_complete, created_at, updated_at
		FROM users
		WHERE external_id = $1
	`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, externalID))
	if err != nil {
		if err == sql.ErrNoRows {
			return identity.User{}, sentinel.ErrNotFound
		}
		return identity.User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (identity.User, error) {
	var (
		user  identity.User
		rawID uuid.UUID
	)
	err := row.Scan(&rawID, &user.ExternalID, &user.Email, &user.FirstName,
		&user.LastName, &user.AvatarURL, &user.Phone,
		&user.OnboardingComplete, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return identity.User{}, err
	}
	user.ID = id.UserID(rawID)
	return user, nil
}
