package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/buildgrid/authcore/internal/models"
	"github.com/buildgrid/authcore/internal/store"
)

func newPendingPrincipal(identityID string) *models.Principal {
	return &models.Principal{
		PrincipalID:    uuid.Must(uuid.NewV7()),
		IdentityID:     identityID,
		Email:          identityID + "@example.com",
		CompanyRole:    models.DefaultRole,
		LifecycleState: models.LifecyclePending,
		Active:         true,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
}

func TestPrincipalStore_Create(t *testing.T) {
	t.Run("create new principal", func(t *testing.T) {
		s := NewPrincipalStore()
		ctx := context.Background()

		err := s.Create(ctx, newPendingPrincipal("idp|1"))
		require.NoError(t, err)
	})

	t.Run("duplicate identity returns error", func(t *testing.T) {
		s := NewPrincipalStore()
		ctx := context.Background()

		require.NoError(t, s.Create(ctx, newPendingPrincipal("idp|1")))

		err := s.Create(ctx, newPendingPrincipal("idp|1"))
		require.ErrorIs(t, err, store.ErrPrincipalAlreadyExists)
	})
}

func TestPrincipalStore_GetByIdentity(t *testing.T) {
	t.Run("resolves by identity token", func(t *testing.T) {
		s := NewPrincipalStore()
		ctx := context.Background()

		p := newPendingPrincipal("idp|42")
		require.NoError(t, s.Create(ctx, p))

		got, err := s.GetByIdentity(ctx, "idp|42")
		require.NoError(t, err)
		require.Equal(t, p.PrincipalID, got.PrincipalID)
	})

	t.Run("unknown identity", func(t *testing.T) {
		s := NewPrincipalStore()

		_, err := s.GetByIdentity(context.Background(), "idp|missing")
		require.ErrorIs(t, err, store.ErrPrincipalNotFound)
	})

	t.Run("tombstoned principal is not resolvable", func(t *testing.T) {
		s := NewPrincipalStore()
		ctx := context.Background()

		p := newPendingPrincipal("idp|7")
		require.NoError(t, s.Create(ctx, p))
		require.NoError(t, s.Delete(ctx, p.PrincipalID))

		_, err := s.GetByIdentity(ctx, "idp|7")
		require.ErrorIs(t, err, store.ErrPrincipalNotFound)
	})
}

func TestPrincipalStore_AssignCompany(t *testing.T) {
	t.Run("assigns once", func(t *testing.T) {
		s := NewPrincipalStore()
		ctx := context.Background()

		p := newPendingPrincipal("idp|1")
		require.NoError(t, s.Create(ctx, p))

		companyID := uuid.Must(uuid.NewV7())
		require.NoError(t, s.AssignCompany(ctx, p.PrincipalID, companyID, models.RoleProjectManager))

		got, err := s.Get(ctx, p.PrincipalID)
		require.NoError(t, err)
		require.NotNil(t, got.CompanyID)
		require.Equal(t, companyID, *got.CompanyID)
		require.Equal(t, models.RoleProjectManager, got.CompanyRole)
	})

	t.Run("refuses reassignment", func(t *testing.T) {
		s := NewPrincipalStore()
		ctx := context.Background()

		p := newPendingPrincipal("idp|1")
		require.NoError(t, s.Create(ctx, p))
		require.NoError(t, s.AssignCompany(ctx, p.PrincipalID, uuid.Must(uuid.NewV7()), models.DefaultRole))

		err := s.AssignCompany(ctx, p.PrincipalID, uuid.Must(uuid.NewV7()), models.DefaultRole)
		require.ErrorIs(t, err, store.ErrCompanyAlreadyAssigned)
	})
}

func TestPrincipalStore_TransitionLifecycle(t *testing.T) {
	t.Run("approve sets approver fields", func(t *testing.T) {
		s := NewPrincipalStore()
		ctx := context.Background()

		p := newPendingPrincipal("idp|1")
		require.NoError(t, s.Create(ctx, p))

		admin := uuid.Must(uuid.NewV7())
		now := time.Now()
		changed, err := s.TransitionLifecycle(ctx, p.PrincipalID, models.LifecycleApproved, admin, now, "")
		require.NoError(t, err)
		require.True(t, changed)

		got, err := s.Get(ctx, p.PrincipalID)
		require.NoError(t, err)
		require.Equal(t, models.LifecycleApproved, got.LifecycleState)
		require.NotNil(t, got.ApprovedBy)
		require.Equal(t, admin, *got.ApprovedBy)
		require.Nil(t, got.RejectedBy)
		require.Nil(t, got.RejectedAt)
	})

	t.Run("reject stores reason", func(t *testing.T) {
		s := NewPrincipalStore()
		ctx := context.Background()

		p := newPendingPrincipal("idp|1")
		require.NoError(t, s.Create(ctx, p))

		changed, err := s.TransitionLifecycle(ctx, p.PrincipalID, models.LifecycleRejected, uuid.Must(uuid.NewV7()), time.Now(), "unknown contractor")
		require.NoError(t, err)
		require.True(t, changed)

		got, err := s.Get(ctx, p.PrincipalID)
		require.NoError(t, err)
		require.Equal(t, models.LifecycleRejected, got.LifecycleState)
		require.Equal(t, "unknown contractor", got.RejectionReason)
		require.Nil(t, got.ApprovedBy)
	})

	t.Run("second transition is a no-op", func(t *testing.T) {
		s := NewPrincipalStore()
		ctx := context.Background()

		p := newPendingPrincipal("idp|1")
		require.NoError(t, s.Create(ctx, p))

		first := uuid.Must(uuid.NewV7())
		changed, err := s.TransitionLifecycle(ctx, p.PrincipalID, models.LifecycleApproved, first, time.Now(), "")
		require.NoError(t, err)
		require.True(t, changed)

		second := uuid.Must(uuid.NewV7())
		changed, err = s.TransitionLifecycle(ctx, p.PrincipalID, models.LifecycleApproved, second, time.Now(), "")
		require.NoError(t, err)
		require.False(t, changed)

		got, err := s.Get(ctx, p.PrincipalID)
		require.NoError(t, err)
		require.Equal(t, first, *got.ApprovedBy)
	})

	t.Run("concurrent approvals produce exactly one winner", func(t *testing.T) {
		s := NewPrincipalStore()
		ctx := context.Background()

		p := newPendingPrincipal("idp|1")
		require.NoError(t, s.Create(ctx, p))

		const admins = 8
		var wg sync.WaitGroup
		wins := make(chan uuid.UUID, admins)

		for range admins {
			wg.Add(1)
			go func() {
				defer wg.Done()
				admin := uuid.Must(uuid.NewV7())
				changed, err := s.TransitionLifecycle(ctx, p.PrincipalID, models.LifecycleApproved, admin, time.Now(), "")
				require.NoError(t, err)
				if changed {
					wins <- admin
				}
			}()
		}
		wg.Wait()
		close(wins)

		var winners []uuid.UUID
		for w := range wins {
			winners = append(winners, w)
		}
		require.Len(t, winners, 1)

		got, err := s.Get(ctx, p.PrincipalID)
		require.NoError(t, err)
		require.Equal(t, winners[0], *got.ApprovedBy)
	})
}

func TestPrincipalStore_UpdateProfile(t *testing.T) {
	s := NewPrincipalStore()
	ctx := context.Background()

	p := newPendingPrincipal("idp|1")
	require.NoError(t, s.Create(ctx, p))

	require.NoError(t, s.UpdateProfile(ctx, p.PrincipalID, "Dana", "dana@site.example"))

	got, err := s.Get(ctx, p.PrincipalID)
	require.NoError(t, err)
	require.Equal(t, "Dana", got.Name)
	require.Equal(t, "dana@site.example", got.Email)
	// Privileged fields untouched.
	require.Equal(t, models.LifecyclePending, got.LifecycleState)
	require.Nil(t, got.CompanyID)
}

func TestPrincipalStore_ListByCompany(t *testing.T) {
	s := NewPrincipalStore()
	ctx := context.Background()

	companyID := uuid.Must(uuid.NewV7())

	for i, identity := range []string{"idp|1", "idp|2", "idp|3"} {
		p := newPendingPrincipal(identity)
		require.NoError(t, s.Create(ctx, p))
		require.NoError(t, s.AssignCompany(ctx, p.PrincipalID, companyID, models.DefaultRole))
		if i == 0 {
			changed, err := s.TransitionLifecycle(ctx, p.PrincipalID, models.LifecycleApproved, uuid.Must(uuid.NewV7()), time.Now(), "")
			require.NoError(t, err)
			require.True(t, changed)
		}
	}

	all, err := s.ListByCompany(ctx, companyID, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)

	pending := models.LifecyclePending
	queue, err := s.ListByCompany(ctx, companyID, &pending)
	require.NoError(t, err)
	require.Len(t, queue, 2)
}
