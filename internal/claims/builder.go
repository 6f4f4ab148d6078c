// Package claims assembles the fact set the decision engine runs on.
//
// This is the privileged read path: it reads principal and grant rows
// directly from the store and never consults the decision engine, so the
// engine's inputs can never depend on a query the engine guards. Claims are
// snapshots, either freshly built per decision or cached for at most a few
// seconds (see Cache).
package claims

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/buildgrid/authcore/internal/authz"
	"github.com/buildgrid/authcore/internal/store"
)

// Source produces claims for a principal. Builder computes them fresh;
// Cache memoizes a Builder for a short TTL.
type Source interface {
	Build(ctx context.Context, principalID uuid.UUID) (authz.Claims, error)
}

// Builder computes claims with two keyed reads: the principal row and the
// principal's grant set.
type Builder struct {
	principals store.PrincipalStore
	grants     store.GrantStore
}

// NewBuilder creates a claims builder over the given stores.
func NewBuilder(principals store.PrincipalStore, grants store.GrantStore) *Builder {
	return &Builder{
		principals: principals,
		grants:     grants,
	}
}

// Build assembles fresh claims for a principal. A tombstoned principal
// yields inactive claims rather than an error, so stale references deny
// instead of failing.
func (b *Builder) Build(ctx context.Context, principalID uuid.UUID) (authz.Claims, error) {
	principal, err := b.principals.Get(ctx, principalID)
	if err != nil {
		return authz.Claims{}, fmt.Errorf("failed to load principal for claims: %w", err)
	}

	claims := authz.Claims{
		PrincipalID: principal.PrincipalID,
		Role:        principal.CompanyRole,
		Lifecycle:   principal.LifecycleState,
		Active:      principal.Active && !principal.Deleted(),
		Grants:      make(map[uuid.UUID]authz.GrantCaps),
	}

	if principal.CompanyID != nil {
		claims.CompanyID = *principal.CompanyID
	}

	grants, err := b.grants.ListByPrincipal(ctx, principalID)
	if err != nil {
		return authz.Claims{}, fmt.Errorf("failed to load grants for claims: %w", err)
	}

	for _, grant := range grants {
		claims.Grants[grant.ProjectID] = authz.GrantCaps{
			CanEdit:    grant.CanEdit,
			CanDelete:  grant.CanDelete,
			CanApprove: grant.CanApprove,
		}
	}

	return claims, nil
}
