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

// GrantStore implements store.GrantStore using PostgreSQL, backed by the
// project_users table.
type GrantStore struct {
	pool *pgxpool.Pool
}

// NewGrantStore creates a new PostgreSQL-backed grant store. It shares the
// connection pool with the other stores.
func NewGrantStore(pool *pgxpool.Pool) *GrantStore {
	return &GrantStore{
		pool: pool,
	}
}

// Upsert creates or replaces the grant for (project, principal).
func (s *GrantStore) Upsert(ctx context.Context, grant *models.ProjectGrant) error {
	query := `
		INSERT INTO project_users (
			project_id, principal_id, project_role,
			can_edit, can_delete, can_approve,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $7
		)
		ON CONFLICT (project_id, principal_id) DO UPDATE SET
			project_role = EXCLUDED.project_role,
			can_edit = EXCLUDED.can_edit,
			can_delete = EXCLUDED.can_delete,
			can_approve = EXCLUDED.can_approve,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now()
	_, err := s.pool.Exec(ctx, query,
		grant.ProjectID,
		grant.PrincipalID,
		grant.ProjectRole,
		grant.CanEdit,
		grant.CanDelete,
		grant.CanApprove,
		now,
	)

	if err != nil {
		if isForeignKeyViolation(err) {
			// Either side of the pair is missing; a grant cannot outlive or
			// precede what it references.
			return fmt.Errorf("grant references missing row: %w", store.ErrGrantNotFound)
		}
		return fmt.Errorf("failed to upsert grant: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("project_id", grant.ProjectID.String()).
		Str("principal_id", grant.PrincipalID.String()).
		Bool("can_edit", grant.CanEdit).
		Bool("can_delete", grant.CanDelete).
		Bool("can_approve", grant.CanApprove).
		Msg("Upserted project grant")

	return nil
}

// Get retrieves the grant for (project, principal).
func (s *GrantStore) Get(ctx context.Context, projectID, principalID uuid.UUID) (*models.ProjectGrant, error) {
	query := `
		SELECT project_id, principal_id, project_role,
			can_edit, can_delete, can_approve,
			created_at, updated_at
		FROM project_users
		WHERE project_id = $1 AND principal_id = $2
	`

	var grant models.ProjectGrant
	err := s.pool.QueryRow(ctx, query, projectID, principalID).Scan(
		&grant.ProjectID,
		&grant.PrincipalID,
		&grant.ProjectRole,
		&grant.CanEdit,
		&grant.CanDelete,
		&grant.CanApprove,
		&grant.CreatedAt,
		&grant.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrGrantNotFound
		}
		return nil, fmt.Errorf("failed to get grant: %w", err)
	}

	return &grant, nil
}

// Delete removes the grant for (project, principal).
func (s *GrantStore) Delete(ctx context.Context, projectID, principalID uuid.UUID) error {
	query := `
		DELETE FROM project_users
		WHERE project_id = $1 AND principal_id = $2
	`

	result, err := s.pool.Exec(ctx, query, projectID, principalID)
	if err != nil {
		return fmt.Errorf("failed to delete grant: %w", err)
	}

	if result.RowsAffected() == 0 {
		return store.ErrGrantNotFound
	}

	log.Debug().
		Str("project_id", projectID.String()).
		Str("principal_id", principalID.String()).
		Msg("Deleted project grant")

	return nil
}

// ListByPrincipal returns all grants held by a principal.
func (s *GrantStore) ListByPrincipal(ctx context.Context, principalID uuid.UUID) ([]*models.ProjectGrant, error) {
	query := `
		SELECT project_id, principal_id, project_role,
			can_edit, can_delete, can_approve,
			created_at, updated_at
		FROM project_users
		WHERE principal_id = $1
	`

	return s.list(ctx, query, principalID)
}

// ListByProject returns all grants on a project.
func (s *GrantStore) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.ProjectGrant, error) {
	query := `
		SELECT project_id, principal_id, project_role,
			can_edit, can_delete, can_approve,
			created_at, updated_at
		FROM project_users
		WHERE project_id = $1
	`

	return s.list(ctx, query, projectID)
}

func (s *GrantStore) list(ctx context.Context, query string, arg any) ([]*models.ProjectGrant, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	defer rows.Close()

	var grants []*models.ProjectGrant
	for rows.Next() {
		var grant models.ProjectGrant
		err := rows.Scan(
			&grant.ProjectID,
			&grant.PrincipalID,
			&grant.ProjectRole,
			&grant.CanEdit,
			&grant.CanDelete,
			&grant.CanApprove,
			&grant.CreatedAt,
			&grant.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		grants = append(grants, &grant)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating grants: %w", err)
	}

	return grants, nil
}
