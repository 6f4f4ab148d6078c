// Package authz implements the decision engine: a pure function from a
// principal's claims, an action, and a resource reference to an allow/deny
// decision.
//
// The engine performs no I/O and imports no store. Everything it needs
// arrives in the Claims value, which is produced by a separate privileged
// read path. That split is structural: the engine cannot re-enter the
// resource store it guards, so policy evaluation can never recurse into a
// query that is itself subject to policy evaluation.
package authz

import (
	"github.com/google/uuid"
)

// Decide evaluates one access check. Rules are evaluated in a fixed order
// and the first match wins; nothing matching is a deny.
//
//  1. Inactive principals are denied outright.
//  2. A principal may always read or update its own principal record, in any
//     lifecycle state, so a pending user can at least learn it is pending.
//     This covers profile semantics only: callers mutating company, role,
//     lifecycle, or the active flag must gate on ActionApprove, which this
//     exception never satisfies.
//  3. Any other access requires lifecycle approved.
//  4. The resource must belong to the caller's company. An insert naming a
//     foreign company is reported as tenant_spoof rather than silently
//     corrected.
//  5. Project-scoped resources: company-wide elevated roles (owner, admin)
//     pass; anyone else needs a project grant with the capability matching
//     the action.
//  6. Company-scoped resources: reads are open to any approved same-company
//     principal; writes require an elevated role.
func Decide(claims Claims, action Action, ref ResourceRef) Decision {
	if !claims.Active {
		return Deny(ReasonInactive)
	}

	if ref.Kind == KindPrincipal && ref.ID == claims.PrincipalID &&
		(action == ActionSelect || action == ActionUpdate) {
		return Allow()
	}

	if !claims.Approved() {
		return Deny(ReasonNotApproved)
	}

	if claims.CompanyID == uuid.Nil || ref.CompanyID != claims.CompanyID {
		if action == ActionInsert {
			return Deny(ReasonTenantSpoof)
		}
		return Deny(ReasonTenantMismatch)
	}

	if ref.ProjectScoped() {
		return decideProjectScoped(claims, action, *ref.ProjectID)
	}

	return decideCompanyScoped(claims, action)
}

func decideProjectScoped(claims Claims, action Action, projectID uuid.UUID) Decision {
	if claims.Role.Elevated() {
		return Allow()
	}

	caps, ok := claims.Grants[projectID]
	if !ok {
		return Deny(ReasonInsufficientGrant)
	}

	switch action {
	case ActionSelect:
		return Allow()
	case ActionInsert, ActionUpdate:
		if caps.CanEdit {
			return Allow()
		}
		return Deny(ReasonInsufficientGrant)
	case ActionDelete:
		if caps.CanDelete {
			return Allow()
		}
		return Deny(ReasonInsufficientGrant)
	case ActionApprove:
		if caps.CanApprove {
			return Allow()
		}
		return Deny(ReasonInsufficientGrant)
	}

	return Deny(ReasonInvalidAction)
}

func decideCompanyScoped(claims Claims, action Action) Decision {
	switch action {
	case ActionSelect:
		return Allow()
	case ActionInsert, ActionUpdate, ActionDelete, ActionApprove:
		if claims.Role.Elevated() {
			return Allow()
		}
		return Deny(ReasonInsufficientRole)
	}

	return Deny(ReasonInvalidAction)
}
