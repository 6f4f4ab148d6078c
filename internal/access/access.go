// Package access is the enforcement surface callers go through: build the
// caller's claims, evaluate the decision engine, and collapse every denial
// into one uniform error.
//
// Deny reasons never travel on the error. They go to logs and metrics, where
// operators can read them; a caller probing the API learns only "forbidden",
// not which rule fired.
package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/buildgrid/authcore/internal/authz"
	"github.com/buildgrid/authcore/internal/claims"
	"github.com/buildgrid/authcore/internal/telemetry"
)

// ErrForbidden is the uniform denial returned for every denied check.
var ErrForbidden = errors.New("access: forbidden")

// Checker evaluates access checks for principals.
type Checker struct {
	claims claims.Source
}

// NewChecker creates a checker over the given claims source. Pass the cached
// source in servers; tests may pass a bare Builder.
func NewChecker(source claims.Source) *Checker {
	return &Checker{claims: source}
}

// Check evaluates whether the principal may perform action on the resource.
// It returns nil on allow and ErrForbidden on deny. Any store failure while
// building claims is returned as-is, so infrastructure errors are not
// mistaken for denials.
func (c *Checker) Check(ctx context.Context, principalID uuid.UUID, action authz.Action, resource authz.ResourceRef) error {
	decision, err := c.Explain(ctx, principalID, action, resource)
	if err != nil {
		return err
	}

	if !decision.Allowed {
		return ErrForbidden
	}
	return nil
}

// Explain evaluates the check and returns the full decision, including the
// deny reason. It exists for diagnostics; request paths use Check.
func (c *Checker) Explain(ctx context.Context, principalID uuid.UUID, action authz.Action, resource authz.ResourceRef) (authz.Decision, error) {
	start := time.Now()

	built, err := c.claims.Build(ctx, principalID)
	if err != nil {
		return authz.Decision{}, fmt.Errorf("failed to build claims: %w", err)
	}

	decision := authz.Decide(built, action, resource)

	telemetry.GetMetrics().RecordDecision(ctx, string(action), decision.Allowed, string(decision.Reason), time.Since(start))

	if !decision.Allowed {
		log.Debug().
			Str("principal_id", principalID.String()).
			Str("action", string(action)).
			Str("resource_kind", string(resource.Kind)).
			Str("resource_id", resource.ID.String()).
			Str("reason", string(decision.Reason)).
			Msg("Access denied")
	}

	return decision, nil
}
