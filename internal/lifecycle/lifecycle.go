// Package lifecycle moves principals through the approval state machine.
//
// The only transitions are pending to approved and pending to rejected. Both
// race through a single conditional update in the store, so two concurrent
// approvals of the same principal produce exactly one winner and the loser
// sees an idempotent repeat rather than a double transition.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/buildgrid/authcore/internal/models"
	"github.com/buildgrid/authcore/internal/store"
	"github.com/buildgrid/authcore/internal/telemetry"
)

var (
	// ErrInvalidTransition is returned when the principal already sits in a
	// different terminal state than the one requested.
	ErrInvalidTransition = errors.New("lifecycle: invalid transition from terminal state")

	// ErrCompanyNotAssigned is returned when approval is attempted before
	// the principal has been placed in a company.
	ErrCompanyNotAssigned = errors.New("lifecycle: principal has no company assigned")

	// ErrReasonRequired is returned when a rejection carries no reason.
	ErrReasonRequired = errors.New("lifecycle: rejection requires a reason")
)

// Result describes the outcome of an approve or reject call.
type Result struct {
	// Transitioned is true when this call performed the state change and
	// false when the principal was already in the requested state.
	Transitioned bool

	// Principal is the row after the call.
	Principal *models.Principal
}

// Machine performs lifecycle transitions against a principal store.
type Machine struct {
	principals store.PrincipalStore
}

// NewMachine creates a lifecycle machine over the given store.
func NewMachine(principals store.PrincipalStore) *Machine {
	return &Machine{principals: principals}
}

// Approve moves a pending principal to approved, recording the actor and
// time. Approving an already-approved principal is a no-op; approving a
// rejected one is ErrInvalidTransition. The principal must have a company
// assigned first, since approval admits it into that tenant.
func (m *Machine) Approve(ctx context.Context, principalID, actorID uuid.UUID) (*Result, error) {
	principal, err := m.principals.Get(ctx, principalID)
	if err != nil {
		return nil, fmt.Errorf("failed to load principal for approval: %w", err)
	}

	if principal.CompanyID == nil {
		return nil, ErrCompanyNotAssigned
	}

	return m.transition(ctx, principal, models.LifecycleApproved, actorID, "")
}

// Reject moves a pending principal to rejected with a mandatory reason.
// Rejecting an already-rejected principal is a no-op; rejecting an approved
// one is ErrInvalidTransition.
func (m *Machine) Reject(ctx context.Context, principalID, actorID uuid.UUID, reason string) (*Result, error) {
	if reason == "" {
		return nil, ErrReasonRequired
	}

	principal, err := m.principals.Get(ctx, principalID)
	if err != nil {
		return nil, fmt.Errorf("failed to load principal for rejection: %w", err)
	}

	return m.transition(ctx, principal, models.LifecycleRejected, actorID, reason)
}

func (m *Machine) transition(ctx context.Context, principal *models.Principal, to models.LifecycleState, actorID uuid.UUID, reason string) (*Result, error) {
	changed, err := m.principals.TransitionLifecycle(ctx, principal.PrincipalID, to, actorID, time.Now(), reason)
	if err != nil {
		return nil, fmt.Errorf("failed to transition principal: %w", err)
	}

	if changed {
		telemetry.GetMetrics().RecordTransition(ctx, string(to), true)

		after, err := m.principals.Get(ctx, principal.PrincipalID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload principal after transition: %w", err)
		}

		log.Info().
			Str("principal_id", principal.PrincipalID.String()).
			Str("actor_id", actorID.String()).
			Str("state", string(to)).
			Msg("Lifecycle transition")

		return &Result{Transitioned: true, Principal: after}, nil
	}

	// The conditional update matched no row, so the principal left pending
	// before this call. Re-read to tell an idempotent repeat apart from a
	// conflicting terminal state.
	after, err := m.principals.Get(ctx, principal.PrincipalID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload principal after transition: %w", err)
	}

	if after.LifecycleState == to {
		return &Result{Transitioned: false, Principal: after}, nil
	}

	telemetry.GetMetrics().RecordTransition(ctx, string(to), false)

	switch {
	case after.LifecycleState == models.LifecycleApproved && after.ApprovedBy != nil:
		return nil, fmt.Errorf("%w: principal %s already approved by %s", ErrInvalidTransition, after.PrincipalID, *after.ApprovedBy)
	case after.LifecycleState == models.LifecycleRejected && after.RejectedBy != nil:
		return nil, fmt.Errorf("%w: principal %s already rejected by %s", ErrInvalidTransition, after.PrincipalID, *after.RejectedBy)
	}
	return nil, fmt.Errorf("%w: principal %s is %s", ErrInvalidTransition, after.PrincipalID, after.LifecycleState)
}
