// Package admin is the administrative surface: company and project setup,
// principal lifecycle, and grant management. Every operation is gated
// through the access checker with the acting principal's own claims, so the
// rules that protect resource tables also protect the tables they are
// derived from.
package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/buildgrid/authcore/internal/access"
	"github.com/buildgrid/authcore/internal/authz"
	"github.com/buildgrid/authcore/internal/graph"
	"github.com/buildgrid/authcore/internal/lifecycle"
	"github.com/buildgrid/authcore/internal/models"
	"github.com/buildgrid/authcore/internal/store"
)

var (
	// ErrInvalidRole is returned when a role outside the closed set is used.
	ErrInvalidRole = errors.New("admin: invalid company role")

	// ErrGrantCrossTenant is returned when a grant would span companies.
	ErrGrantCrossTenant = errors.New("admin: grantee belongs to a different company than the project")
)

// Invalidator drops cached claims after a mutation. *claims.Cache satisfies
// it; tests that build claims fresh may pass nil.
type Invalidator interface {
	Invalidate(principalID uuid.UUID)
}

// Service exposes the administrative operations.
type Service struct {
	checker     *access.Checker
	machine     *lifecycle.Machine
	index       *graph.Index
	companies   store.CompanyStore
	principals  store.PrincipalStore
	projects    store.ProjectStore
	grants      store.GrantStore
	invalidator Invalidator
}

// NewService wires the administrative service. invalidator may be nil.
func NewService(
	checker *access.Checker,
	machine *lifecycle.Machine,
	index *graph.Index,
	companies store.CompanyStore,
	principals store.PrincipalStore,
	projects store.ProjectStore,
	grants store.GrantStore,
	invalidator Invalidator,
) *Service {
	return &Service{
		checker:     checker,
		machine:     machine,
		index:       index,
		companies:   companies,
		principals:  principals,
		projects:    projects,
		grants:      grants,
		invalidator: invalidator,
	}
}

func (s *Service) invalidate(principalID uuid.UUID) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(principalID)
	}
}

// principalRef builds the company-scoped reference for acting on another
// principal's record. For a subject not yet placed in a company the gate
// falls back to the actor's own company, so an elevated administrator can
// still reject an unassigned signup.
func (s *Service) principalRef(ctx context.Context, actorID uuid.UUID, subject *models.Principal) (authz.ResourceRef, error) {
	ref := authz.ResourceRef{
		Kind: authz.KindPrincipal,
		ID:   subject.PrincipalID,
	}

	if subject.CompanyID != nil {
		ref.CompanyID = *subject.CompanyID
		return ref, nil
	}

	actor, err := s.principals.Get(ctx, actorID)
	if err != nil {
		return authz.ResourceRef{}, fmt.Errorf("failed to load acting principal: %w", err)
	}
	if actor.CompanyID != nil {
		ref.CompanyID = *actor.CompanyID
	}
	return ref, nil
}

// ApprovePrincipal approves a pending principal. The actor needs approve
// rights on principals in the subject's company, which the engine restricts
// to elevated roles.
func (s *Service) ApprovePrincipal(ctx context.Context, actorID, principalID uuid.UUID) (*lifecycle.Result, error) {
	subject, err := s.principals.Get(ctx, principalID)
	if err != nil {
		return nil, fmt.Errorf("failed to load principal: %w", err)
	}

	ref, err := s.principalRef(ctx, actorID, subject)
	if err != nil {
		return nil, err
	}
	if err := s.checker.Check(ctx, actorID, authz.ActionApprove, ref); err != nil {
		return nil, err
	}

	result, err := s.machine.Approve(ctx, principalID, actorID)
	if err != nil {
		return nil, err
	}

	s.invalidate(principalID)
	return result, nil
}

// RejectPrincipal rejects a pending principal with a reason.
func (s *Service) RejectPrincipal(ctx context.Context, actorID, principalID uuid.UUID, reason string) (*lifecycle.Result, error) {
	subject, err := s.principals.Get(ctx, principalID)
	if err != nil {
		return nil, fmt.Errorf("failed to load principal: %w", err)
	}

	ref, err := s.principalRef(ctx, actorID, subject)
	if err != nil {
		return nil, err
	}
	if err := s.checker.Check(ctx, actorID, authz.ActionApprove, ref); err != nil {
		return nil, err
	}

	result, err := s.machine.Reject(ctx, principalID, actorID, reason)
	if err != nil {
		return nil, err
	}

	s.invalidate(principalID)
	return result, nil
}

// AssignCompany places an unassigned principal into a company with a role.
// The gate is ActionApprove on principals in the target company: membership
// management is the same authority as working the approval queue, and unlike
// ActionUpdate it is never satisfied by the engine's own-record exception.
// A company-less signup naming itself as the subject is denied, not seated
// in a tenant it chose.
func (s *Service) AssignCompany(ctx context.Context, actorID, principalID, companyID uuid.UUID, role models.CompanyRole) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	ref := authz.ResourceRef{
		Kind:      authz.KindPrincipal,
		ID:        principalID,
		CompanyID: companyID,
	}
	if err := s.checker.Check(ctx, actorID, authz.ActionApprove, ref); err != nil {
		return err
	}

	if _, err := s.companies.Get(ctx, companyID); err != nil {
		return fmt.Errorf("failed to load company: %w", err)
	}

	if err := s.principals.AssignCompany(ctx, principalID, companyID, role); err != nil {
		return fmt.Errorf("failed to assign company: %w", err)
	}

	s.invalidate(principalID)

	log.Info().
		Str("principal_id", principalID.String()).
		Str("company_id", companyID.String()).
		Str("role", string(role)).
		Msg("Assigned principal to company")

	return nil
}

// CreateProject creates a project inside a company. The actor needs insert
// rights on projects in that company.
func (s *Service) CreateProject(ctx context.Context, actorID, companyID uuid.UUID, name string) (*models.Project, error) {
	projectID := uuid.Must(uuid.NewV7())

	ref := authz.ResourceRef{
		Kind:      authz.KindProject,
		ID:        projectID,
		CompanyID: companyID,
	}
	if err := s.checker.Check(ctx, actorID, authz.ActionInsert, ref); err != nil {
		return nil, err
	}

	project := &models.Project{
		ProjectID: projectID,
		CompanyID: companyID,
		Name:      name,
		Status:    models.ProjectStatusActive,
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return project, nil
}

// grantAdminRef gates grant management. The reference is deliberately
// company-scoped rather than project-scoped: a can_edit grant lets someone
// edit project records, not hand out grants, so managing membership stays
// with elevated roles.
func (s *Service) grantAdminRef(ctx context.Context, projectID uuid.UUID) (authz.ResourceRef, error) {
	companyID, ok, err := s.index.ResolveProject(ctx, projectID)
	if err != nil {
		return authz.ResourceRef{}, err
	}
	if !ok {
		return authz.ResourceRef{}, store.ErrProjectNotFound
	}

	return authz.ResourceRef{
		Kind:      authz.KindProject,
		ID:        projectID,
		CompanyID: companyID,
	}, nil
}

// GrantProjectAccess creates or replaces the grantee's capabilities on a
// project. The actor needs elevated rights in the project's company; the
// grantee must belong to that company.
func (s *Service) GrantProjectAccess(ctx context.Context, actorID uuid.UUID, grant *models.ProjectGrant) error {
	ref, err := s.grantAdminRef(ctx, grant.ProjectID)
	if err != nil {
		return err
	}
	if err := s.checker.Check(ctx, actorID, authz.ActionUpdate, ref); err != nil {
		return err
	}

	grantee, err := s.principals.Get(ctx, grant.PrincipalID)
	if err != nil {
		return fmt.Errorf("failed to load grantee: %w", err)
	}
	if grantee.CompanyID == nil || *grantee.CompanyID != ref.CompanyID {
		return ErrGrantCrossTenant
	}

	if err := s.grants.Upsert(ctx, grant); err != nil {
		return fmt.Errorf("failed to store grant: %w", err)
	}

	s.invalidate(grant.PrincipalID)

	log.Info().
		Str("project_id", grant.ProjectID.String()).
		Str("principal_id", grant.PrincipalID.String()).
		Str("project_role", grant.ProjectRole).
		Msg("Granted project access")

	return nil
}

// RevokeProjectAccess removes the grantee's capabilities on a project.
func (s *Service) RevokeProjectAccess(ctx context.Context, actorID, projectID, principalID uuid.UUID) error {
	ref, err := s.grantAdminRef(ctx, projectID)
	if err != nil {
		return err
	}
	if err := s.checker.Check(ctx, actorID, authz.ActionUpdate, ref); err != nil {
		return err
	}

	if err := s.grants.Delete(ctx, projectID, principalID); err != nil {
		return fmt.Errorf("failed to revoke grant: %w", err)
	}

	s.invalidate(principalID)
	return nil
}

// UpdateProfile lets a principal edit their own name and email. The engine
// allows a principal's own record even while pending, so a fresh signup can
// fix a typo in their profile before approval.
func (s *Service) UpdateProfile(ctx context.Context, actorID, principalID uuid.UUID, name, email string) error {
	subject, err := s.principals.Get(ctx, principalID)
	if err != nil {
		return fmt.Errorf("failed to load principal: %w", err)
	}

	ref := authz.ResourceRef{
		Kind: authz.KindPrincipal,
		ID:   subject.PrincipalID,
	}
	if subject.CompanyID != nil {
		ref.CompanyID = *subject.CompanyID
	}
	if err := s.checker.Check(ctx, actorID, authz.ActionUpdate, ref); err != nil {
		return err
	}

	if err := s.principals.UpdateProfile(ctx, principalID, name, email); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	s.invalidate(principalID)
	return nil
}

// DeactivatePrincipal flips the subject's active flag off, which denies all
// access on the next claims build.
func (s *Service) DeactivatePrincipal(ctx context.Context, actorID, principalID uuid.UUID) error {
	return s.setActive(ctx, actorID, principalID, false)
}

// ReactivatePrincipal flips the subject's active flag back on.
func (s *Service) ReactivatePrincipal(ctx context.Context, actorID, principalID uuid.UUID) error {
	return s.setActive(ctx, actorID, principalID, true)
}

// setActive gates with ActionApprove for the same reason AssignCompany
// does: the own-record exception covers ActionUpdate, and a deactivated
// principal must not be able to switch itself back on.
func (s *Service) setActive(ctx context.Context, actorID, principalID uuid.UUID, active bool) error {
	subject, err := s.principals.Get(ctx, principalID)
	if err != nil {
		return fmt.Errorf("failed to load principal: %w", err)
	}

	ref, err := s.principalRef(ctx, actorID, subject)
	if err != nil {
		return err
	}
	if err := s.checker.Check(ctx, actorID, authz.ActionApprove, ref); err != nil {
		return err
	}

	if err := s.principals.SetActive(ctx, principalID, active); err != nil {
		return fmt.Errorf("failed to set active flag: %w", err)
	}

	s.invalidate(principalID)
	return nil
}

// ListPendingPrincipals returns the company's approval queue. The actor
// needs approve rights on principals in the company.
func (s *Service) ListPendingPrincipals(ctx context.Context, actorID, companyID uuid.UUID) ([]*models.Principal, error) {
	ref := authz.ResourceRef{
		Kind:      authz.KindPrincipal,
		ID:        companyID,
		CompanyID: companyID,
	}
	if err := s.checker.Check(ctx, actorID, authz.ActionApprove, ref); err != nil {
		return nil, err
	}

	pending := models.LifecyclePending
	return s.principals.ListByCompany(ctx, companyID, &pending)
}
