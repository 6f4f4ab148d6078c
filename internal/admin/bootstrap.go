package admin

import (
	"context"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/buildgrid/authcore/internal/models"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// CreateCompany creates a new tenant. This is an operator-level operation:
// a brand-new company has no elevated principals yet, so there is nobody
// whose claims could gate it.
func (s *Service) CreateCompany(ctx context.Context, name, slug string) (*models.Company, error) {
	if !slugPattern.MatchString(slug) {
		return nil, fmt.Errorf("admin: invalid company slug %q", slug)
	}

	company := &models.Company{
		CompanyID: uuid.Must(uuid.NewV7()),
		Name:      name,
		Slug:      slug,
		Active:    true,
	}
	if err := s.companies.Create(ctx, company); err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}

	log.Info().
		Str("company_id", company.CompanyID.String()).
		Str("slug", slug).
		Msg("Created company")

	return company, nil
}

// BootstrapOwner assigns a pending principal as the first owner of a company
// and approves them in the same call. Operator-level: until an owner exists,
// nobody inside the company can pass the approval gate, so this is the one
// place an approval is recorded with the owner as their own approver.
func (s *Service) BootstrapOwner(ctx context.Context, companyID, principalID uuid.UUID) error {
	if _, err := s.companies.Get(ctx, companyID); err != nil {
		return fmt.Errorf("failed to load company: %w", err)
	}

	if err := s.principals.AssignCompany(ctx, principalID, companyID, models.RoleOwner); err != nil {
		return fmt.Errorf("failed to assign owner: %w", err)
	}

	if _, err := s.machine.Approve(ctx, principalID, principalID); err != nil {
		return fmt.Errorf("failed to approve owner: %w", err)
	}

	s.invalidate(principalID)

	log.Info().
		Str("company_id", companyID.String()).
		Str("principal_id", principalID.String()).
		Msg("Bootstrapped company owner")

	return nil
}
