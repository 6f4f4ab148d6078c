// Package directory maps identity-provider accounts to principals and
// provisions a principal row when a new identity appears.
package directory

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

// Directory resolves identity tokens to principals.
type Directory struct {
	principals store.PrincipalStore
}

// NewDirectory creates a directory over the given principal store.
func NewDirectory(principals store.PrincipalStore) *Directory {
	return &Directory{principals: principals}
}

// Resolve returns the principal for an identity-provider token. Tombstoned
// principals do not resolve; the caller sees store.ErrPrincipalNotFound.
func (d *Directory) Resolve(ctx context.Context, identityID string) (*models.Principal, error) {
	principal, err := d.principals.GetByIdentity(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve identity: %w", err)
	}
	return principal, nil
}

// IdentityCreatedEvent is the notification from the identity provider that a
// new account signed up. Delivery is at-least-once.
type IdentityCreatedEvent struct {
	IdentityID string
	Email      string
	Name       string
}

// Provisioner turns identity events into principal rows.
type Provisioner struct {
	principals store.PrincipalStore
}

// NewProvisioner creates a provisioner over the given principal store.
func NewProvisioner(principals store.PrincipalStore) *Provisioner {
	return &Provisioner{principals: principals}
}

// IdentityCreated provisions a principal for a new identity. The principal
// starts pending with the default role and no company; an administrator
// assigns and approves it later. Redelivered events hit the identity_id
// unique constraint and are dropped as benign duplicates, so the handler is
// safe to retry.
func (p *Provisioner) IdentityCreated(ctx context.Context, event IdentityCreatedEvent) (*models.Principal, error) {
	if event.IdentityID == "" {
		return nil, errors.New("directory: identity event has no identity id")
	}

	principal := &models.Principal{
		PrincipalID:    uuid.Must(uuid.NewV7()),
		IdentityID:     event.IdentityID,
		Email:          event.Email,
		Name:           event.Name,
		CompanyID:      nil,
		CompanyRole:    models.DefaultRole,
		LifecycleState: models.LifecyclePending,
		Active:         true,
		CreatedAt:      time.Now(),
	}

	err := p.principals.Create(ctx, principal)
	if err != nil {
		if errors.Is(err, store.ErrPrincipalAlreadyExists) {
			telemetry.GetMetrics().RecordProvisioning(ctx, true)
			log.Debug().
				Str("identity_id", event.IdentityID).
				Msg("Identity already provisioned, dropping duplicate event")

			existing, err := p.principals.GetByIdentity(ctx, event.IdentityID)
			if err != nil {
				return nil, fmt.Errorf("failed to load existing principal: %w", err)
			}
			return existing, nil
		}
		return nil, fmt.Errorf("failed to provision principal: %w", err)
	}

	telemetry.GetMetrics().RecordProvisioning(ctx, false)
	log.Info().
		Str("principal_id", principal.PrincipalID.String()).
		Str("identity_id", event.IdentityID).
		Msg("Provisioned principal")

	return principal, nil
}
