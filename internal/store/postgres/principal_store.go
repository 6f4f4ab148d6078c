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

const principalColumns = `
	principal_id, identity_id, email, name,
	company_id, company_role,
	lifecycle_state, approved_by, approved_at,
	rejected_by, rejected_at, rejection_reason,
	active, created_at, updated_at, deleted_at
`

// PrincipalStore implements store.PrincipalStore using PostgreSQL.
//
// The lifecycle transition is a single conditional UPDATE, so two concurrent
// approvals race at the row lock and exactly one of them changes the row.
type PrincipalStore struct {
	pool *pgxpool.Pool
}

// NewPrincipalStore creates a new PostgreSQL-backed principal store. It
// shares the connection pool with the other stores.
func NewPrincipalStore(pool *pgxpool.Pool) *PrincipalStore {
	return &PrincipalStore{
		pool: pool,
	}
}

// Create inserts a new principal.
func (s *PrincipalStore) Create(ctx context.Context, principal *models.Principal) error {
	query := `
		INSERT INTO principals (
			principal_id, identity_id, email, name,
			company_id, company_role, lifecycle_state,
			active, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	_, err := s.pool.Exec(ctx, query,
		principal.PrincipalID,
		principal.IdentityID,
		principal.Email,
		principal.Name,
		principal.CompanyID,
		principal.CompanyRole,
		principal.LifecycleState,
		principal.Active,
		principal.CreatedAt,
		principal.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrPrincipalAlreadyExists
		}
		return fmt.Errorf("failed to create principal: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("principal_id", principal.PrincipalID.String()).
		Str("identity_id", principal.IdentityID).
		Msg("Created principal")

	return nil
}

// Get retrieves a principal by ID, including tombstoned ones.
func (s *PrincipalStore) Get(ctx context.Context, principalID uuid.UUID) (*models.Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM principals WHERE principal_id = $1`
	return s.scanOne(ctx, query, principalID)
}

// GetByIdentity retrieves a non-deleted principal by identity token.
func (s *PrincipalStore) GetByIdentity(ctx context.Context, identityID string) (*models.Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM principals WHERE identity_id = $1 AND deleted_at IS NULL`
	return s.scanOne(ctx, query, identityID)
}

func (s *PrincipalStore) scanOne(ctx context.Context, query string, arg any) (*models.Principal, error) {
	var p models.Principal
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&p.PrincipalID,
		&p.IdentityID,
		&p.Email,
		&p.Name,
		&p.CompanyID,
		&p.CompanyRole,
		&p.LifecycleState,
		&p.ApprovedBy,
		&p.ApprovedAt,
		&p.RejectedBy,
		&p.RejectedAt,
		&p.RejectionReason,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.DeletedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("failed to get principal: %w", err)
	}

	return &p, nil
}

// UpdateProfile updates the self-service fields (name, email) only.
func (s *PrincipalStore) UpdateProfile(ctx context.Context, principalID uuid.UUID, name, email string) error {
	query := `
		UPDATE principals
		SET name = $2, email = $3, updated_at = $4
		WHERE principal_id = $1 AND deleted_at IS NULL
	`

	result, err := s.pool.Exec(ctx, query, principalID, name, email, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update principal profile: %w", err)
	}

	if result.RowsAffected() == 0 {
		return store.ErrPrincipalNotFound
	}

	return nil
}

// AssignCompany sets company_id and role, but only while company_id is NULL.
// Reassignment is refused rather than re-pointed.
func (s *PrincipalStore) AssignCompany(ctx context.Context, principalID, companyID uuid.UUID, role models.CompanyRole) error {
	query := `
		UPDATE principals
		SET company_id = $2, company_role = $3, updated_at = $4
		WHERE principal_id = $1 AND company_id IS NULL AND deleted_at IS NULL
	`

	result, err := s.pool.Exec(ctx, query, principalID, companyID, role, time.Now())
	if err != nil {
		return fmt.Errorf("failed to assign company: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		// Distinguish "gone" from "already assigned".
		p, getErr := s.Get(ctx, principalID)
		if getErr != nil || p.Deleted() {
			return store.ErrPrincipalNotFound
		}
		return store.ErrCompanyAlreadyAssigned
	}

	log.Info().
		Str("principal_id", principalID.String()).
		Str("company_id", companyID.String()).
		Str("role", string(role)).
		Msg("Assigned principal to company")

	return nil
}

// TransitionLifecycle performs the pending-to-terminal compare-and-swap in a
// single statement. Approval and rejection fields are set and cleared
// together so the row always satisfies the lifecycle CHECK constraint.
func (s *PrincipalStore) TransitionLifecycle(ctx context.Context, principalID uuid.UUID, to models.LifecycleState, actorID uuid.UUID, at time.Time, reason string) (bool, error) {
	var query string
	var args []any

	switch to {
	case models.LifecycleApproved:
		query = `
			UPDATE principals
			SET lifecycle_state = 'approved',
				approved_by = $2, approved_at = $3,
				rejected_by = NULL, rejected_at = NULL, rejection_reason = '',
				updated_at = $3
			WHERE principal_id = $1 AND lifecycle_state = 'pending' AND deleted_at IS NULL
		`
		args = []any{principalID, actorID, at}
	case models.LifecycleRejected:
		query = `
			UPDATE principals
			SET lifecycle_state = 'rejected',
				rejected_by = $2, rejected_at = $3, rejection_reason = $4,
				approved_by = NULL, approved_at = NULL,
				updated_at = $3
			WHERE principal_id = $1 AND lifecycle_state = 'pending' AND deleted_at IS NULL
		`
		args = []any{principalID, actorID, at, reason}
	default:
		return false, fmt.Errorf("lifecycle transition to %q is not possible", to)
	}

	result, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to transition lifecycle: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		// Row exists but was not pending, or doesn't exist at all; callers
		// re-read to tell those apart.
		exists, err := s.exists(ctx, principalID)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, store.ErrPrincipalNotFound
		}
		return false, nil
	}

	log.Info().
		Str("principal_id", principalID.String()).
		Str("state", string(to)).
		Str("actor_id", actorID.String()).
		Msg("Lifecycle transition")

	return true, nil
}

func (s *PrincipalStore) exists(ctx context.Context, principalID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM principals WHERE principal_id = $1 AND deleted_at IS NULL)`,
		principalID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check principal existence: %w", err)
	}
	return exists, nil
}

// SetActive flips the active flag.
func (s *PrincipalStore) SetActive(ctx context.Context, principalID uuid.UUID, active bool) error {
	query := `
		UPDATE principals
		SET active = $2, updated_at = $3
		WHERE principal_id = $1 AND deleted_at IS NULL
	`

	result, err := s.pool.Exec(ctx, query, principalID, active, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set active flag: %w", err)
	}

	if result.RowsAffected() == 0 {
		return store.ErrPrincipalNotFound
	}

	return nil
}

// Delete tombstones a principal by setting deleted_at.
func (s *PrincipalStore) Delete(ctx context.Context, principalID uuid.UUID) error {
	query := `
		UPDATE principals
		SET deleted_at = $2, updated_at = $2
		WHERE principal_id = $1 AND deleted_at IS NULL
	`

	now := time.Now()
	result, err := s.pool.Exec(ctx, query, principalID, now)
	if err != nil {
		return fmt.Errorf("failed to delete principal: %w", err)
	}

	if result.RowsAffected() == 0 {
		return store.ErrPrincipalNotFound
	}

	log.Info().
		Str("principal_id", principalID.String()).
		Msg("Soft-deleted principal")

	return nil
}

// ListByCompany returns non-deleted principals of a company, optionally
// filtered by lifecycle state.
func (s *PrincipalStore) ListByCompany(ctx context.Context, companyID uuid.UUID, state *models.LifecycleState) ([]*models.Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM principals WHERE company_id = $1 AND deleted_at IS NULL`
	args := []any{companyID}

	if state != nil {
		query += ` AND lifecycle_state = $2`
		args = append(args, *state)
	}

	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list principals: %w", err)
	}
	defer rows.Close()

	var principals []*models.Principal
	for rows.Next() {
		var p models.Principal
		err := rows.Scan(
			&p.PrincipalID,
			&p.IdentityID,
			&p.Email,
			&p.Name,
			&p.CompanyID,
			&p.CompanyRole,
			&p.LifecycleState,
			&p.ApprovedBy,
			&p.ApprovedAt,
			&p.RejectedBy,
			&p.RejectedAt,
			&p.RejectionReason,
			&p.Active,
			&p.CreatedAt,
			&p.UpdatedAt,
			&p.DeletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan principal: %w", err)
		}
		principals = append(principals, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating principals: %w", err)
	}

	return principals, nil
}
