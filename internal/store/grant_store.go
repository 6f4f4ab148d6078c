package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/buildgrid/authcore/internal/models"
)

// GrantStore defines the interface for project grant storage.
type GrantStore interface {
	// Upsert creates or replaces the grant for (project, principal). The
	// pair is unique; granting again overwrites the capability set.
	Upsert(ctx context.Context, grant *models.ProjectGrant) error

	// Get retrieves the grant for (project, principal).
	// Returns ErrGrantNotFound if no grant exists.
	Get(ctx context.Context, projectID, principalID uuid.UUID) (*models.ProjectGrant, error)

	// Delete removes the grant for (project, principal).
	Delete(ctx context.Context, projectID, principalID uuid.UUID) error

	// ListByPrincipal returns all grants held by a principal. The claims
	// builder uses this single keyed read to assemble the grant set.
	ListByPrincipal(ctx context.Context, principalID uuid.UUID) ([]*models.ProjectGrant, error)

	// ListByProject returns all grants on a project.
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.ProjectGrant, error)
}
