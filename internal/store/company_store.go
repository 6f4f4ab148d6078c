package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/buildgrid/authcore/internal/models"
)

// CompanyStore defines the interface for company (tenant) storage.
type CompanyStore interface {
	// Create creates a new company.
	// Returns ErrCompanyAlreadyExists if the ID or slug is already taken.
	Create(ctx context.Context, company *models.Company) error

	// Get retrieves a company by ID.
	// Returns ErrCompanyNotFound if the company doesn't exist.
	Get(ctx context.Context, companyID uuid.UUID) (*models.Company, error)

	// GetBySlug retrieves a company by its unique slug.
	GetBySlug(ctx context.Context, slug string) (*models.Company, error)

	// Update updates the company's name and active flag. The slug is
	// immutable after creation.
	Update(ctx context.Context, company *models.Company) error

	// Deactivate clears the active flag. Companies are never hard-deleted;
	// principals and projects keep their references.
	Deactivate(ctx context.Context, companyID uuid.UUID) error

	// List returns all companies, active first, newest first within each.
	List(ctx context.Context) ([]*models.Company, error)
}
