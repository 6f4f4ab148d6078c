package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/buildgrid/authcore/internal/models"
)

// ProjectStore defines the interface for project storage.
type ProjectStore interface {
	// Create creates a new project inside a company. The company_id is
	// immutable afterwards.
	Create(ctx context.Context, project *models.Project) error

	// Get retrieves a project by ID.
	Get(ctx context.Context, projectID uuid.UUID) (*models.Project, error)

	// Update updates the project's name and status. company_id never moves.
	Update(ctx context.Context, project *models.Project) error

	// ListByCompany returns all projects of a company, newest first.
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*models.Project, error)

	// ListAll returns every project. The tenant graph uses it to build its
	// project-to-company index; it is not exposed to tenants.
	ListAll(ctx context.Context) ([]*models.Project, error)
}
