// Package graph resolves resource references against the containment
// hierarchy of companies, projects and their records.
//
// Resolution runs off a precomputed project-to-company index, refreshed as a
// whole on a short interval, so answering "which tenant owns this?" during a
// decision is a map lookup rather than a live join across the tables the
// decision protects.
package graph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/buildgrid/authcore/internal/authz"
	"github.com/buildgrid/authcore/internal/store"
)

// DefaultRefreshInterval bounds how stale the project index may be. New
// projects become resolvable within this window; decisions against a project
// the index hasn't seen yet fail closed.
const DefaultRefreshInterval = 5 * time.Second

// Index is the precomputed tenant graph. Safe for concurrent use.
type Index struct {
	projects store.ProjectStore
	grants   store.GrantStore
	interval time.Duration

	mu             sync.RWMutex
	projectCompany map[uuid.UUID]uuid.UUID
	refreshedAt    time.Time
}

// NewIndex creates a tenant graph over the given stores. A zero interval
// selects DefaultRefreshInterval.
func NewIndex(projects store.ProjectStore, grants store.GrantStore, interval time.Duration) *Index {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Index{
		projects:       projects,
		grants:         grants,
		interval:       interval,
		projectCompany: make(map[uuid.UUID]uuid.UUID),
	}
}

// Refresh rebuilds the project-to-company index from the store.
func (i *Index) Refresh(ctx context.Context) error {
	projects, err := i.projects.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh tenant graph: %w", err)
	}

	index := make(map[uuid.UUID]uuid.UUID, len(projects))
	for _, project := range projects {
		index[project.ProjectID] = project.CompanyID
	}

	i.mu.Lock()
	i.projectCompany = index
	i.refreshedAt = time.Now()
	i.mu.Unlock()

	log.Debug().Int("projects", len(index)).Msg("Refreshed tenant graph")
	return nil
}

// ResolveProject returns the owning company of a project from the index,
// refreshing first if the index is stale. Unknown projects return false.
func (i *Index) ResolveProject(ctx context.Context, projectID uuid.UUID) (uuid.UUID, bool, error) {
	i.mu.RLock()
	stale := time.Since(i.refreshedAt) > i.interval
	companyID, ok := i.projectCompany[projectID]
	i.mu.RUnlock()

	if ok && !stale {
		return companyID, true, nil
	}

	if err := i.Refresh(ctx); err != nil {
		return uuid.Nil, false, err
	}

	i.mu.RLock()
	companyID, ok = i.projectCompany[projectID]
	i.mu.RUnlock()

	return companyID, ok, nil
}

// GrantsFor returns the grant for (principal, project), or nil when none
// exists. Claims assembly loads a principal's whole grant set in one query
// (see claims.Builder); this single keyed lookup is for callers that
// already hold a project in hand, such as diagnostics inspecting one
// membership without building full claims.
func (i *Index) GrantsFor(ctx context.Context, principalID, projectID uuid.UUID) (*authz.GrantCaps, error) {
	grant, err := i.grants.Get(ctx, projectID, principalID)
	if err != nil {
		if err == store.ErrGrantNotFound {
			return nil, nil
		}
		return nil, err
	}

	return &authz.GrantCaps{
		CanEdit:    grant.CanEdit,
		CanDelete:  grant.CanDelete,
		CanApprove: grant.CanApprove,
	}, nil
}

// RecordRef builds the ResourceRef for a project-scoped record, resolving
// the owning company through the index. Unknown projects fail closed with
// store.ErrProjectNotFound.
func (i *Index) RecordRef(ctx context.Context, kind authz.ResourceKind, recordID, projectID uuid.UUID) (authz.ResourceRef, error) {
	companyID, ok, err := i.ResolveProject(ctx, projectID)
	if err != nil {
		return authz.ResourceRef{}, err
	}
	if !ok {
		return authz.ResourceRef{}, store.ErrProjectNotFound
	}

	pid := projectID
	return authz.ResourceRef{
		Kind:      kind,
		ID:        recordID,
		CompanyID: companyID,
		ProjectID: &pid,
	}, nil
}

// ProjectRef builds the ResourceRef for a project itself.
func (i *Index) ProjectRef(ctx context.Context, projectID uuid.UUID) (authz.ResourceRef, error) {
	return i.RecordRef(ctx, authz.KindProject, projectID, projectID)
}
