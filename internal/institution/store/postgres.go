package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"admitto/internal/institution"
	id "admitto/pkg/domain"
	"admitto/pkg/platform/sentinel"
)

// PostgresMembershipStore reads membership rows from PostgreSQL. Membership
// writes happen out-of-band; this service only resolves roles.
type PostgresMembershipStore struct {
	db *sql.DB
}

// NewPostgresMembershipStore constructs a PostgreSQL-backed membership store.
func NewPostgresMembershipStore(db *sql.DB) *PostgresMembershipStore {
	return &PostgresMembershipStore{db: db}
}

func (s *PostgresMembershipStore) FindMembership(ctx context.Context, institutionID id.InstitutionID, userID id.UserID) (institution.Membership, error) {
	query := `
		SELECT role, created_at
		FROM institution_memberships
		WHERE institution_id = $1 AND user_id = $2
	`
	m := institution.Membership{InstitutionID: institutionID, UserID: userID}
	var role string
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(institutionID), uuid.UUID(userID)).
		Scan(&role, &m.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return institution.Membership{}, sentinel.ErrNotFound
		}
		return institution.Membership{}, fmt.Errorf("find membership: %w", err)
	}
	m.Role = institution.Role(role)
	return m, nil
}

// PostgresInstitutionStore reads institution rows from PostgreSQL.
type PostgresInstitutionStore struct {
	db *sql.DB
}

// NewPostgresInstitutionStore constructs a PostgreSQL-backed institution store.
func NewPostgresInstitutionStore(db *sql.DB) *PostgresInstitutionStore {
	return &PostgresInstitutionStore{db: db}
}

func (s *PostgresInstitutionStore) FindByID(ctx context.Context, institutionID id.InstitutionID) (institution.Institution, error) {
	query := `SELECT name, slug, created_at FROM institutions WHERE id = $1`
	inst := institution.Institution{ID: institutionID}
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(institutionID)).
		Scan(&inst.Name, &inst.Slug, &inst.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return institution.Institution{}, sentinel.ErrNotFound
		}
		return institution.Institution{}, fmt.Errorf("find institution: %w", err)
	}
	return inst, nil
}

// FindBySlug resolves an institution by its URL slug.
func (s *PostgresInstitutionStore) FindBySlug(ctx context.Context, slug string) (institution.Institution, error) {
	query := `SELECT id, name, created_at FROM institutions WHERE slug = $1`
	inst := institution.Institution{Slug: slug}
	var instID uuid.UUID
	err := s.db.QueryRowContext(ctx, query, slug).
		Scan(&instID, &inst.Name, &inst.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return institution.Institution{}, sentinel.ErrNotFound
		}
		return institution.Institution{}, fmt.Errorf("find institution by slug: %w", err)
	}
	inst.ID = id.InstitutionID(instID)
	return inst, nil
}
