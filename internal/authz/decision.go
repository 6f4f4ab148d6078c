package authz

// Reason says which rule denied a check. Reasons are for logs and metrics
// only; callers surface a uniform "forbidden" to avoid leaking which rule
// matched to a would-be tenant enumerator.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonInactive          Reason = "inactive"
	ReasonNotApproved       Reason = "not_approved"
	ReasonTenantMismatch    Reason = "tenant_mismatch"
	ReasonTenantSpoof       Reason = "tenant_spoof"
	ReasonInsufficientGrant Reason = "insufficient_grant"
	ReasonInsufficientRole  Reason = "insufficient_role"
	ReasonInvalidAction     Reason = "invalid_action"
)

// Decision is the ephemeral outcome of one access check. It is produced
// fresh per check and never persisted.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Allow returns an allowing decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a denying decision with the given reason code.
func Deny(reason Reason) Decision {
	return Decision{Allowed: false, Reason: reason}
}
