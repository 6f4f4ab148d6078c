package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/buildgrid/authcore/internal/models"
	"github.com/buildgrid/authcore/internal/store"
)

type grantKey struct {
	projectID   uuid.UUID
	principalID uuid.UUID
}

// GrantStore is an in-memory implementation of store.GrantStore for
// development and testing.
type GrantStore struct {
	mu     sync.RWMutex
	grants map[grantKey]*models.ProjectGrant
}

// NewGrantStore creates a new in-memory grant store.
func NewGrantStore() *GrantStore {
	return &GrantStore{
		grants: make(map[grantKey]*models.ProjectGrant),
	}
}

// Upsert creates or replaces the grant for (project, principal).
func (s *GrantStore) Upsert(ctx context.Context, grant *models.ProjectGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := grantKey{projectID: grant.ProjectID, principalID: grant.PrincipalID}
	g := *grant
	if existing, exists := s.grants[key]; exists {
		g.CreatedAt = existing.CreatedAt
	}
	g.UpdatedAt = time.Now()
	s.grants[key] = &g
	return nil
}

// Get retrieves the grant for (project, principal).
func (s *GrantStore) Get(ctx context.Context, projectID, principalID uuid.UUID) (*models.ProjectGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	grant, exists := s.grants[grantKey{projectID: projectID, principalID: principalID}]
	if !exists {
		return nil, store.ErrGrantNotFound
	}

	g := *grant
	return &g, nil
}

// Delete removes the grant for (project, principal).
func (s *GrantStore) Delete(ctx context.Context, projectID, principalID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := grantKey{projectID: projectID, principalID: principalID}
	if _, exists := s.grants[key]; !exists {
		return store.ErrGrantNotFound
	}

	delete(s.grants, key)
	return nil
}

// ListByPrincipal returns all grants held by a principal.
func (s *GrantStore) ListByPrincipal(ctx context.Context, principalID uuid.UUID) ([]*models.ProjectGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.ProjectGrant
	for key, grant := range s.grants {
		if key.principalID != principalID {
			continue
		}
		g := *grant
		result = append(result, &g)
	}

	return result, nil
}

// ListByProject returns all grants on a project.
func (s *GrantStore) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.ProjectGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.ProjectGrant
	for key, grant := range s.grants {
		if key.projectID != projectID {
			continue
		}
		g := *grant
		result = append(result, &g)
	}

	return result, nil
}
