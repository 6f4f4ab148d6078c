package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/buildgrid/authcore/internal/models"
	"github.com/buildgrid/authcore/internal/store"
)

// ProjectStore implements store.ProjectStore using PostgreSQL.
type ProjectStore struct {
	pool *pgxpool.Pool
}

// NewProjectStore creates a new PostgreSQL-backed project store. It shares
// the connection pool with the other stores.
func NewProjectStore(pool *pgxpool.Pool) *ProjectStore {
	return &ProjectStore{
		pool: pool,
	}
}

// Create creates a new project inside a company.
func (s *ProjectStore) Create(ctx context.Context, project *models.Project) error {
	query := `
		INSERT INTO projects (
			project_id, company_id, name, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`

	_, err := s.pool.Exec(ctx, query,
		project.ProjectID,
		project.CompanyID,
		project.Name,
		project.Status,
		project.CreatedAt,
		project.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrProjectAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return store.ErrCompanyNotFound
		}
		return fmt.Errorf("failed to create project: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("project_id", project.ProjectID.String()).
		Str("company_id", project.CompanyID.String()).
		Msg("Created project")

	return nil
}

// Get retrieves a project by ID.
func (s *ProjectStore) Get(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	query := `
		SELECT project_id, company_id, name, status, created_at, updated_at
		FROM projects
		WHERE project_id = $1
	`

	var project models.Project
	err := s.pool.QueryRow(ctx, query, projectID).Scan(
		&project.ProjectID,
		&project.CompanyID,
		&project.Name,
		&project.Status,
		&project.CreatedAt,
		&project.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return &project, nil
}

// Update updates the project's name and status. company_id is deliberately
// absent from the statement; it is immutable after creation.
func (s *ProjectStore) Update(ctx context.Context, project *models.Project) error {
	query := `
		UPDATE projects SET
			name = $2,
			status = $3,
			updated_at = $4
		WHERE project_id = $1
	`

	result, err := s.pool.Exec(ctx, query,
		project.ProjectID,
		project.Name,
		project.Status,
		time.Now(),
	)

	if err != nil {
		return fmt.Errorf("failed to update project: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrProjectNotFound
	}

	return nil
}

// ListByCompany returns all projects of a company, newest first.
func (s *ProjectStore) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*models.Project, error) {
	query := `
		SELECT project_id, company_id, name, status, created_at, updated_at
		FROM projects
		WHERE company_id = $1
		ORDER BY created_at DESC
	`

	return s.list(ctx, query, companyID)
}

// ListAll returns every project; the tenant graph builds its index from it.
func (s *ProjectStore) ListAll(ctx context.Context) ([]*models.Project, error) {
	query := `
		SELECT project_id, company_id, name, status, created_at, updated_at
		FROM projects
		ORDER BY created_at DESC
	`

	return s.list(ctx, query)
}

func (s *ProjectStore) list(ctx context.Context, query string, args ...any) ([]*models.Project, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		var project models.Project
		err := rows.Scan(
			&project.ProjectID,
			&project.CompanyID,
			&project.Name,
			&project.Status,
			&project.CreatedAt,
			&project.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, &project)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}

	return projects, nil
}
