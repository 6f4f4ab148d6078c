//go:build integration

package postgres

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/buildgrid/authcore/internal/models"
	"github.com/buildgrid/authcore/internal/store"
)

func setupPostgres(t *testing.T, ctx context.Context) *pgxpool.Pool {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connString := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	pool, err := NewPool(ctx, &PoolConfig{ConnString: connString})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, RunMigrations(ctx, pool))
	return pool
}

func createCompany(t *testing.T, ctx context.Context, companies *CompanyStore, slug string) *models.Company {
	now := time.Now()
	company := &models.Company{
		CompanyID: uuid.Must(uuid.NewV7()),
		Name:      slug,
		Slug:      slug,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, companies.Create(ctx, company))
	return company
}

func createPendingPrincipal(t *testing.T, ctx context.Context, principals *PrincipalStore, identityID string) *models.Principal {
	now := time.Now()
	p := &models.Principal{
		PrincipalID:    uuid.Must(uuid.NewV7()),
		IdentityID:     identityID,
		Email:          identityID + "@example.com",
		CompanyRole:    models.DefaultRole,
		LifecycleState: models.LifecyclePending,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, principals.Create(ctx, p))
	return p
}

func TestPostgresStores_RoundTrip(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)

	companies := NewCompanyStore(pool)
	principals := NewPrincipalStore(pool)
	projects := NewProjectStore(pool)
	grants := NewGrantStore(pool)

	company := createCompany(t, ctx, companies, "acme-construction")

	t.Run("duplicate slug rejected", func(t *testing.T) {
		dup := &models.Company{
			CompanyID: uuid.Must(uuid.NewV7()),
			Name:      "Duplicate",
			Slug:      "acme-construction",
			Active:    true,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		require.ErrorIs(t, companies.Create(ctx, dup), store.ErrCompanyAlreadyExists)
	})

	p := createPendingPrincipal(t, ctx, principals, "idp|alice")

	t.Run("provisioning is idempotent at the unique index", func(t *testing.T) {
		dup := &models.Principal{
			PrincipalID:    uuid.Must(uuid.NewV7()),
			IdentityID:     "idp|alice",
			Email:          "alice@example.com",
			CompanyRole:    models.DefaultRole,
			LifecycleState: models.LifecyclePending,
			Active:         true,
			CreatedAt:      time.Now(),
			UpdatedAt:      time.Now(),
		}
		require.ErrorIs(t, principals.Create(ctx, dup), store.ErrPrincipalAlreadyExists)
	})

	t.Run("assign company exactly once", func(t *testing.T) {
		require.NoError(t, principals.AssignCompany(ctx, p.PrincipalID, company.CompanyID, models.RoleProjectManager))
		err := principals.AssignCompany(ctx, p.PrincipalID, company.CompanyID, models.RoleAdmin)
		require.ErrorIs(t, err, store.ErrCompanyAlreadyAssigned)
	})

	t.Run("approve sets fields atomically", func(t *testing.T) {
		admin := createPendingPrincipal(t, ctx, principals, "idp|admin")
		require.NoError(t, principals.AssignCompany(ctx, admin.PrincipalID, company.CompanyID, models.RoleAdmin))

		changed, err := principals.TransitionLifecycle(ctx, p.PrincipalID, models.LifecycleApproved, admin.PrincipalID, time.Now(), "")
		require.NoError(t, err)
		require.True(t, changed)

		got, err := principals.Get(ctx, p.PrincipalID)
		require.NoError(t, err)
		require.Equal(t, models.LifecycleApproved, got.LifecycleState)
		require.Equal(t, admin.PrincipalID, *got.ApprovedBy)
		require.Nil(t, got.RejectedBy)
	})

	project := &models.Project{
		ProjectID: uuid.Must(uuid.NewV7()),
		CompanyID: company.CompanyID,
		Name:      "Riverside Tower",
		Status:    models.ProjectStatusActive,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	t.Run("project and grant lifecycle", func(t *testing.T) {
		require.NoError(t, projects.Create(ctx, project))

		require.NoError(t, grants.Upsert(ctx, &models.ProjectGrant{
			ProjectID:   project.ProjectID,
			PrincipalID: p.PrincipalID,
			ProjectRole: "foreman",
			CanEdit:     true,
		}))

		grant, err := grants.Get(ctx, project.ProjectID, p.PrincipalID)
		require.NoError(t, err)
		require.True(t, grant.CanEdit)
		require.False(t, grant.CanDelete)

		held, err := grants.ListByPrincipal(ctx, p.PrincipalID)
		require.NoError(t, err)
		require.Len(t, held, 1)
	})

	t.Run("grant cascades with principal tombstone intact", func(t *testing.T) {
		// Soft delete does not cascade; the grant row survives until the
		// principal row itself is removed.
		require.NoError(t, principals.Delete(ctx, p.PrincipalID))

		_, err := grants.Get(ctx, project.ProjectID, p.PrincipalID)
		require.NoError(t, err)
	})
}

func TestPostgresPrincipalStore_ConcurrentApproval(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)

	companies := NewCompanyStore(pool)
	principals := NewPrincipalStore(pool)

	company := createCompany(t, ctx, companies, "concurrent-co")
	p := createPendingPrincipal(t, ctx, principals, "idp|raced")
	require.NoError(t, principals.AssignCompany(ctx, p.PrincipalID, company.CompanyID, models.DefaultRole))

	const admins = 8
	adminIDs := make([]uuid.UUID, admins)
	for i := range adminIDs {
		admin := createPendingPrincipal(t, ctx, principals, fmt.Sprintf("idp|admin-%d", i))
		require.NoError(t, principals.AssignCompany(ctx, admin.PrincipalID, company.CompanyID, models.RoleAdmin))
		adminIDs[i] = admin.PrincipalID
	}

	var wg sync.WaitGroup
	wins := make(chan uuid.UUID, admins)
	for _, adminID := range adminIDs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			changed, err := principals.TransitionLifecycle(ctx, p.PrincipalID, models.LifecycleApproved, adminID, time.Now(), "")
			require.NoError(t, err)
			if changed {
				wins <- adminID
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

	got, err := principals.Get(ctx, p.PrincipalID)
	require.NoError(t, err)
	require.Equal(t, winners[0], *got.ApprovedBy)
}

func TestPostgresConstraints_DefenseInDepth(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)

	t.Run("lifecycle fields cannot disagree with state", func(t *testing.T) {
		_, err := pool.Exec(ctx, `
			INSERT INTO principals (principal_id, identity_id, email, lifecycle_state, approved_at)
			VALUES ($1, 'idp|broken', 'broken@example.com', 'pending', now())
		`, uuid.Must(uuid.NewV7()))
		require.Error(t, err)
	})

	t.Run("approved principal must have a company", func(t *testing.T) {
		approver := uuid.Must(uuid.NewV7())
		_, err := pool.Exec(ctx, `
			INSERT INTO principals (principal_id, identity_id, email, lifecycle_state, approved_by, approved_at)
			VALUES ($1, 'idp|orphan', 'orphan@example.com', 'approved', $2, now())
		`, uuid.Must(uuid.NewV7()), approver)
		require.Error(t, err)
	})

	t.Run("unknown role rejected", func(t *testing.T) {
		_, err := pool.Exec(ctx, `
			INSERT INTO principals (principal_id, identity_id, email, company_role)
			VALUES ($1, 'idp|rogue', 'rogue@example.com', 'superuser')
		`, uuid.Must(uuid.NewV7()))
		require.Error(t, err)
	})
}
