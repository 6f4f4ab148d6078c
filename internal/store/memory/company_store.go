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

// CompanyStore is an in-memory implementation of store.CompanyStore for
// development and testing.
type CompanyStore struct {
	mu        sync.RWMutex
	companies map[uuid.UUID]*models.Company
	bySlug    map[string]uuid.UUID
}

// NewCompanyStore creates a new in-memory company store.
func NewCompanyStore() *CompanyStore {
	return &CompanyStore{
		companies: make(map[uuid.UUID]*models.Company),
		bySlug:    make(map[string]uuid.UUID),
	}
}

// Create creates a new company.
func (s *CompanyStore) Create(ctx context.Context, company *models.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.companies[company.CompanyID]; exists {
		return store.ErrCompanyAlreadyExists
	}
	if _, exists := s.bySlug[company.Slug]; exists {
		return store.ErrCompanyAlreadyExists
	}

	c := *company
	s.companies[company.CompanyID] = &c
	s.bySlug[company.Slug] = company.CompanyID
	return nil
}

// Get retrieves a company by ID.
func (s *CompanyStore) Get(ctx context.Context, companyID uuid.UUID) (*models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	company, exists := s.companies[companyID]
	if !exists {
		return nil, store.ErrCompanyNotFound
	}

	c := *company
	return &c, nil
}

// GetBySlug retrieves a company by its unique slug.
func (s *CompanyStore) GetBySlug(ctx context.Context, slug string) (*models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	companyID, exists := s.bySlug[slug]
	if !exists {
		return nil, store.ErrCompanyNotFound
	}

	c := *s.companies[companyID]
	return &c, nil
}

// Update updates the company's name and active flag.
func (s *CompanyStore) Update(ctx context.Context, company *models.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.companies[company.CompanyID]
	if !exists {
		return store.ErrCompanyNotFound
	}

	existing.Name = company.Name
	existing.Active = company.Active
	existing.UpdatedAt = time.Now()
	return nil
}

// Deactivate clears the active flag.
func (s *CompanyStore) Deactivate(ctx context.Context, companyID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	company, exists := s.companies[companyID]
	if !exists {
		return store.ErrCompanyNotFound
	}

	company.Active = false
	company.UpdatedAt = time.Now()
	return nil
}

// List returns all companies, active first, newest first within each.
func (s *CompanyStore) List(ctx context.Context) ([]*models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Company, 0, len(s.companies))
	for _, company := range s.companies {
		c := *company
		result = append(result, &c)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Active != result[j].Active {
			return result[i].Active
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}
