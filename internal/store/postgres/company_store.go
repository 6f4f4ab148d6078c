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

// CompanyStore implements store.CompanyStore using PostgreSQL.
type CompanyStore struct {
	pool *pgxpool.Pool
}

// NewCompanyStore creates a new PostgreSQL-backed company store. It shares
// the connection pool with the other stores.
func NewCompanyStore(pool *pgxpool.Pool) *CompanyStore {
	return &CompanyStore{
		pool: pool,
	}
}

// Create creates a new company in the database.
func (s *CompanyStore) Create(ctx context.Context, company *models.Company) error {
	query := `
		INSERT INTO companies (
			company_id, name, slug, active, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`

	_, err := s.pool.Exec(ctx, query,
		company.CompanyID,
		company.Name,
		company.Slug,
		company.Active,
		company.CreatedAt,
		company.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrCompanyAlreadyExists
		}
		return fmt.Errorf("failed to create company: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("company_id", company.CompanyID.String()).
		Str("slug", company.Slug).
		Msg("Created company")

	return nil
}

// Get retrieves a company by ID.
func (s *CompanyStore) Get(ctx context.Context, companyID uuid.UUID) (*models.Company, error) {
	query := `
		SELECT company_id, name, slug, active, created_at, updated_at
		FROM companies
		WHERE company_id = $1
	`

	return s.scanOne(ctx, query, companyID)
}

// GetBySlug retrieves a company by its unique slug.
func (s *CompanyStore) GetBySlug(ctx context.Context, slug string) (*models.Company, error) {
	query := `
		SELECT company_id, name, slug, active, created_at, updated_at
		FROM companies
		WHERE slug = $1
	`

	return s.scanOne(ctx, query, slug)
}

func (s *CompanyStore) scanOne(ctx context.Context, query string, arg any) (*models.Company, error) {
	var company models.Company
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&company.CompanyID,
		&company.Name,
		&company.Slug,
		&company.Active,
		&company.CreatedAt,
		&company.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrCompanyNotFound
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}

	return &company, nil
}

// Update updates the company's name and active flag. The slug is immutable.
func (s *CompanyStore) Update(ctx context.Context, company *models.Company) error {
	query := `
		UPDATE companies SET
			name = $2,
			active = $3,
			updated_at = $4
		WHERE company_id = $1
	`

	result, err := s.pool.Exec(ctx, query,
		company.CompanyID,
		company.Name,
		company.Active,
		time.Now(),
	)

	if err != nil {
		return fmt.Errorf("failed to update company: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrCompanyNotFound
	}

	return nil
}

// Deactivate clears the active flag.
func (s *CompanyStore) Deactivate(ctx context.Context, companyID uuid.UUID) error {
	query := `
		UPDATE companies
		SET active = FALSE, updated_at = $2
		WHERE company_id = $1
	`

	result, err := s.pool.Exec(ctx, query, companyID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to deactivate company: %w", err)
	}

	if result.RowsAffected() == 0 {
		return store.ErrCompanyNotFound
	}

	log.Info().
		Str("company_id", companyID.String()).
		Msg("Deactivated company")

	return nil
}

// List returns all companies, active first, newest first within each.
func (s *CompanyStore) List(ctx context.Context) ([]*models.Company, error) {
	query := `
		SELECT company_id, name, slug, active, created_at, updated_at
		FROM companies
		ORDER BY active DESC, created_at DESC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var companies []*models.Company
	for rows.Next() {
		var company models.Company
		err := rows.Scan(
			&company.CompanyID,
			&company.Name,
			&company.Slug,
			&company.Active,
			&company.CreatedAt,
			&company.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, &company)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating companies: %w", err)
	}

	return companies, nil
}
