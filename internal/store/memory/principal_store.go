package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/buildgrid/authcore/internal/models"
	"github.com/buildgrid/authcore/internal/store"
)

// PrincipalStore is an in-memory implementation of store.PrincipalStore for
// development and testing. The lifecycle transition holds the same lock as
// every other mutation, giving it the compare-and-swap semantics the
// Postgres implementation gets from a single conditional UPDATE.
type PrincipalStore struct {
	mu         sync.RWMutex
	principals map[uuid.UUID]*models.Principal
	byIdentity map[string]uuid.UUID
}

// NewPrincipalStore creates a new in-memory principal store.
func NewPrincipalStore() *PrincipalStore {
	return &PrincipalStore{
		principals: make(map[uuid.UUID]*models.Principal),
		byIdentity: make(map[string]uuid.UUID),
	}
}

// Create inserts a new principal.
func (s *PrincipalStore) Create(ctx context.Context, principal *models.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.principals[principal.PrincipalID]; exists {
		return store.ErrPrincipalAlreadyExists
	}
	if _, exists := s.byIdentity[principal.IdentityID]; exists {
		return store.ErrPrincipalAlreadyExists
	}

	s.principals[principal.PrincipalID] = copyPrincipal(principal)
	s.byIdentity[principal.IdentityID] = principal.PrincipalID
	return nil
}

// Get retrieves a principal by ID, including tombstoned ones.
func (s *PrincipalStore) Get(ctx context.Context, principalID uuid.UUID) (*models.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	principal, exists := s.principals[principalID]
	if !exists {
		return nil, store.ErrPrincipalNotFound
	}

	return copyPrincipal(principal), nil
}

// GetByIdentity retrieves a non-deleted principal by identity token.
func (s *PrincipalStore) GetByIdentity(ctx context.Context, identityID string) (*models.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	principalID, exists := s.byIdentity[identityID]
	if !exists {
		return nil, store.ErrPrincipalNotFound
	}

	principal := s.principals[principalID]
	if principal.Deleted() {
		return nil, store.ErrPrincipalNotFound
	}

	return copyPrincipal(principal), nil
}

// UpdateProfile updates the self-service fields only.
func (s *PrincipalStore) UpdateProfile(ctx context.Context, principalID uuid.UUID, name, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	principal, exists := s.principals[principalID]
	if !exists || principal.Deleted() {
		return store.ErrPrincipalNotFound
	}

	principal.Name = name
	principal.Email = email
	principal.UpdatedAt = time.Now()
	return nil
}

// AssignCompany sets company_id and role on a company-less principal.
func (s *PrincipalStore) AssignCompany(ctx context.Context, principalID, companyID uuid.UUID, role models.CompanyRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	principal, exists := s.principals[principalID]
	if !exists || principal.Deleted() {
		return store.ErrPrincipalNotFound
	}
	if principal.CompanyID != nil {
		return store.ErrCompanyAlreadyAssigned
	}

	id := companyID
	principal.CompanyID = &id
	principal.CompanyRole = role
	principal.UpdatedAt = time.Now()
	return nil
}

// TransitionLifecycle performs the pending-to-terminal compare-and-swap.
func (s *PrincipalStore) TransitionLifecycle(ctx context.Context, principalID uuid.UUID, to models.LifecycleState, actorID uuid.UUID, at time.Time, reason string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	principal, exists := s.principals[principalID]
	if !exists || principal.Deleted() {
		return false, store.ErrPrincipalNotFound
	}

	if principal.LifecycleState != models.LifecyclePending {
		return false, nil
	}

	actor := actorID
	when := at
	switch to {
	case models.LifecycleApproved:
		principal.LifecycleState = models.LifecycleApproved
		principal.ApprovedBy = &actor
		principal.ApprovedAt = &when
		principal.RejectedBy = nil
		principal.RejectedAt = nil
		principal.RejectionReason = ""
	case models.LifecycleRejected:
		principal.LifecycleState = models.LifecycleRejected
		principal.RejectedBy = &actor
		principal.RejectedAt = &when
		principal.RejectionReason = reason
		principal.ApprovedBy = nil
		principal.ApprovedAt = nil
	default:
		return false, nil
	}

	principal.UpdatedAt = time.Now()
	return true, nil
}

// SetActive flips the active flag.
func (s *PrincipalStore) SetActive(ctx context.Context, principalID uuid.UUID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	principal, exists := s.principals[principalID]
	if !exists || principal.Deleted() {
		return store.ErrPrincipalNotFound
	}

	principal.Active = active
	principal.UpdatedAt = time.Now()
	return nil
}

// Delete tombstones a principal.
func (s *PrincipalStore) Delete(ctx context.Context, principalID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	principal, exists := s.principals[principalID]
	if !exists || principal.Deleted() {
		return store.ErrPrincipalNotFound
	}

	now := time.Now()
	principal.DeletedAt = &now
	principal.UpdatedAt = now
	return nil
}

// ListByCompany returns non-deleted principals of a company.
func (s *PrincipalStore) ListByCompany(ctx context.Context, companyID uuid.UUID, state *models.LifecycleState) ([]*models.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Principal
	for _, principal := range s.principals {
		if principal.Deleted() || principal.CompanyID == nil || *principal.CompanyID != companyID {
			continue
		}
		if state != nil && principal.LifecycleState != *state {
			continue
		}
		result = append(result, copyPrincipal(principal))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

func copyPrincipal(p *models.Principal) *models.Principal {
	c := *p
	if p.CompanyID != nil {
		id := *p.CompanyID
		c.CompanyID = &id
	}
	if p.ApprovedBy != nil {
		id := *p.ApprovedBy
		c.ApprovedBy = &id
	}
	if p.ApprovedAt != nil {
		t := *p.ApprovedAt
		c.ApprovedAt = &t
	}
	if p.RejectedBy != nil {
		id := *p.RejectedBy
		c.RejectedBy = &id
	}
	if p.RejectedAt != nil {
		t := *p.RejectedAt
		c.RejectedAt = &t
	}
	if p.DeletedAt != nil {
		t := *p.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}
