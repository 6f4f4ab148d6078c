package authz

import (
	"github.com/google/uuid"

	"github.com/buildgrid/authcore/internal/models"
)

// GrantCaps is the capability subset of a ProjectGrant the engine needs.
type GrantCaps struct {
	CanEdit    bool
	CanDelete  bool
	CanApprove bool
}

// Claims is the complete fact set one decision is made from. It is assembled
// by a privileged read path (claims.Builder) and passed in by value; the
// engine itself never touches a store. Claims are short-lived snapshots, not
// shared session state.
type Claims struct {
	PrincipalID uuid.UUID

	// CompanyID is uuid.Nil while the principal has no company assigned.
	CompanyID uuid.UUID

	Role      models.CompanyRole
	Lifecycle models.LifecycleState
	Active    bool

	// Grants holds the principal's project grants keyed by project ID.
	Grants map[uuid.UUID]GrantCaps
}

// Approved reports whether the claims passed the approval gate.
func (c Claims) Approved() bool {
	return c.Lifecycle == models.LifecycleApproved
}
