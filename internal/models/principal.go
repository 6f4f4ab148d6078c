package models

import (
	"time"

	"github.com/google/uuid"
)

// CompanyRole is the company-wide role of a principal. The set is closed so
// that adding a role is a compile-time-checked change rather than a stray
// string in the database.
type CompanyRole string

const (
	RoleOwner          CompanyRole = "owner"
	RoleAdmin          CompanyRole = "admin"
	RoleSuperintendent CompanyRole = "superintendent"
	RoleProjectManager CompanyRole = "project_manager"
	RoleOfficeAdmin    CompanyRole = "office_admin"
	RoleFieldEmployee  CompanyRole = "field_employee"
	RoleSubcontractor  CompanyRole = "subcontractor"
	RoleArchitect      CompanyRole = "architect"
	RoleClient         CompanyRole = "client"
)

// DefaultRole is assigned at provisioning time, before an administrator
// places the principal in a company.
const DefaultRole = RoleFieldEmployee

// CompanyRoles lists every valid company role.
var CompanyRoles = []CompanyRole{
	RoleOwner,
	RoleAdmin,
	RoleSuperintendent,
	RoleProjectManager,
	RoleOfficeAdmin,
	RoleFieldEmployee,
	RoleSubcontractor,
	RoleArchitect,
	RoleClient,
}

// Valid reports whether r is a member of the closed role set.
func (r CompanyRole) Valid() bool {
	for _, known := range CompanyRoles {
		if r == known {
			return true
		}
	}
	return false
}

// Elevated reports whether the role carries company-wide access to every
// project without a per-project grant.
func (r CompanyRole) Elevated() bool {
	return r == RoleOwner || r == RoleAdmin
}

// LifecycleState gates whether a principal may act at all. A principal is
// created pending and moves exactly once, to approved or rejected.
type LifecycleState string

const (
	LifecyclePending  LifecycleState = "pending"
	LifecycleApproved LifecycleState = "approved"
	LifecycleRejected LifecycleState = "rejected"
)

// Valid reports whether s is a member of the closed state set.
func (s LifecycleState) Valid() bool {
	switch s {
	case LifecyclePending, LifecycleApproved, LifecycleRejected:
		return true
	}
	return false
}

// Terminal reports whether the state permits no further transition.
func (s LifecycleState) Terminal() bool {
	return s == LifecycleApproved || s == LifecycleRejected
}

// Principal represents a user account within one company.
//
// CompanyID is nullable only transiently: a principal is provisioned without
// a company and must be assigned one before it can be approved. Approval and
// rejection fields are mutually exclusive and consistent with LifecycleState;
// the database enforces the same invariant with a CHECK constraint.
type Principal struct {
	PrincipalID uuid.UUID // UUIDv7
	IdentityID  string    // stable token from the identity provider, unique
	Email       string
	Name        string

	CompanyID   *uuid.UUID // nil until assignCompany
	CompanyRole CompanyRole

	LifecycleState  LifecycleState
	ApprovedBy      *uuid.UUID
	ApprovedAt      *time.Time
	RejectedBy      *uuid.UUID
	RejectedAt      *time.Time
	RejectionReason string

	Active bool

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time // Soft delete; historical records keep their references
}

// Approved reports whether the principal has passed the approval gate.
func (p *Principal) Approved() bool {
	return p.LifecycleState == LifecycleApproved
}

// Deleted reports whether the principal has been tombstoned.
func (p *Principal) Deleted() bool {
	return p.DeletedAt != nil
}
