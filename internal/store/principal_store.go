package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/buildgrid/authcore/internal/models"
)

// PrincipalStore defines the interface for principal storage.
type PrincipalStore interface {
	// Create inserts a new principal. The identity_id is unique; a second
	// create for the same identity returns ErrPrincipalAlreadyExists, which
	// the provisioning trigger treats as a benign duplicate.
	Create(ctx context.Context, principal *models.Principal) error

	// Get retrieves a principal by ID, including tombstoned ones.
	Get(ctx context.Context, principalID uuid.UUID) (*models.Principal, error)

	// GetByIdentity retrieves a non-deleted principal by its identity
	// provider token. This is the directory's single keyed lookup.
	GetByIdentity(ctx context.Context, identityID string) (*models.Principal, error)

	// UpdateProfile updates the self-service fields (name, email) and
	// nothing else. Company, role, and lifecycle are only mutated through
	// AssignCompany and TransitionLifecycle.
	UpdateProfile(ctx context.Context, principalID uuid.UUID, name, email string) error

	// AssignCompany sets company_id and company_role on a principal whose
	// company_id is still NULL. Returns ErrCompanyAlreadyAssigned if it was
	// set before; assignment is never defaulted and never re-pointed.
	AssignCompany(ctx context.Context, principalID, companyID uuid.UUID, role models.CompanyRole) error

	// TransitionLifecycle is the compare-and-swap that moves a pending
	// principal to a terminal state, setting the approver/rejecter fields in
	// the same statement. It returns (true, nil) when this call performed the
	// transition and (false, nil) when the principal was no longer pending;
	// the caller re-reads to tell an idempotent repeat from an invalid
	// transition. reason is stored only for rejections.
	TransitionLifecycle(ctx context.Context, principalID uuid.UUID, to models.LifecycleState, actorID uuid.UUID, at time.Time, reason string) (bool, error)

	// SetActive flips the active flag.
	SetActive(ctx context.Context, principalID uuid.UUID, active bool) error

	// Delete tombstones a principal. Historical records keep referencing it.
	Delete(ctx context.Context, principalID uuid.UUID) error

	// ListByCompany returns non-deleted principals of a company, optionally
	// filtered by lifecycle state (nil = all). Newest first.
	ListByCompany(ctx context.Context, companyID uuid.UUID, state *models.LifecycleState) ([]*models.Principal, error)
}
