package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"admitto/internal/application"
	id "admitto/pkg/domain"
)

// PostgresApplicationStore reads application rows from PostgreSQL.
type PostgresApplicationStore struct {
	db *sql.DB
}

// NewPostgresApplicationStore constructs a PostgreSQL-backed application store.
func NewPostgresApplicationStore(db *sql.DB) *PostgresApplicationStore {
	return &PostgresApplicationStore{db: db}
}

func (s *PostgresApplicationStore) List(ctx context.Context, scope application.Scope, filter application.ListFilter) ([]application.Application, error) {
	var b strings.Builder
	b.WriteString(`
		SELECT id, institution_id, course_id, status,
		       applicant_first_name, applicant_last_name, applicant_email,
		       created_at, updated_at
		FROM applications
		WHERE institution_id = $1 AND course_id = $2
	`)
	args := []any{uuid.UUID(scope.InstitutionID), uuid.UUID(scope.CourseID)}

	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		b.WriteString(" AND status = $" + strconv.Itoa(len(args)))
	}
	b.WriteString(" ORDER BY created_at DESC")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		b.WriteString(" LIMIT $" + strconv.Itoa(len(args)))
	}
	if start := filter.Start(); start > 0 {
		args = append(args, start)
		b.WriteString(" OFFSET $" + strconv.Itoa(len(args)))
	}

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	apps := []application.Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return apps, nil
}

func scanApplication(rows *sql.Rows) (application.Application, error) {
	var (
		app                          application.Application
		appID, institutionID, course uuid.UUID
		status                       string
	)
	err := rows.Scan(
		&appID,
		&institutionID,
		&course,
		&status,
		&app.Applicant.FirstName,
		&app.Applicant.LastName,
		&app.Applicant.Email,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		return application.Application{}, err
	}
	app.ID = id.ApplicationID(appID)
	app.InstitutionID = id.InstitutionID(institutionID)
	app.CourseID = id.CourseID(course)
	app.Status = application.Status(status)
	return app, nil
}
