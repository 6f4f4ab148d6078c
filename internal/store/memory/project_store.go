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

// ProjectStore is an in-memory implementation of store.ProjectStore for
// development and testing.
type ProjectStore struct {
	mu       sync.RWMutex
	projects map[uuid.UUID]*models.Project
}

// NewProjectStore creates a new in-memory project store.
func NewProjectStore() *ProjectStore {
	return &ProjectStore{
		projects: make(map[uuid.UUID]*models.Project),
	}
}

// Create creates a new project.
func (s *ProjectStore) Create(ctx context.Context, project *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.projects[project.ProjectID]; exists {
		return store.ErrProjectAlreadyExists
	}

	p := *project
	s.projects[project.ProjectID] = &p
	return nil
}

// Get retrieves a project by ID.
func (s *ProjectStore) Get(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	project, exists := s.projects[projectID]
	if !exists {
		return nil, store.ErrProjectNotFound
	}

	p := *project
	return &p, nil
}

// Update updates the project's name and status; company_id never moves.
func (s *ProjectStore) Update(ctx context.Context, project *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.projects[project.ProjectID]
	if !exists {
		return store.ErrProjectNotFound
	}

	existing.Name = project.Name
	existing.Status = project.Status
	existing.UpdatedAt = time.Now()
	return nil
}

// ListByCompany returns all projects of a company, newest first.
func (s *ProjectStore) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Project
	for _, project := range s.projects {
		if project.CompanyID != companyID {
			continue
		}
		p := *project
		result = append(result, &p)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

// ListAll returns every project.
func (s *ProjectStore) ListAll(ctx context.Context) ([]*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Project, 0, len(s.projects))
	for _, project := range s.projects {
		p := *project
		result = append(result, &p)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}
