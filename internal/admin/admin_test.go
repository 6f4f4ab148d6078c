package admin

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/buildgrid/authcore/internal/access"
	"github.com/buildgrid/authcore/internal/claims"
	"github.com/buildgrid/authcore/internal/graph"
	"github.com/buildgrid/authcore/internal/lifecycle"
	"github.com/buildgrid/authcore/internal/models"
	"github.com/buildgrid/authcore/internal/store/memory"
)

type fixture struct {
	service    *Service
	principals *memory.PrincipalStore
	companies  *memory.CompanyStore
	projects   *memory.ProjectStore
	grants     *memory.GrantStore

	company *models.Company
	owner   *models.Principal
}

// newFixture builds a service over memory stores with one bootstrapped
// company and owner. Claims are built fresh per check, so mutations are
// visible immediately without a cache.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	principals := memory.NewPrincipalStore()
	companies := memory.NewCompanyStore()
	projects := memory.NewProjectStore()
	grants := memory.NewGrantStore()

	checker := access.NewChecker(claims.NewBuilder(principals, grants))
	machine := lifecycle.NewMachine(principals)
	index := graph.NewIndex(projects, grants, time.Minute)

	service := NewService(checker, machine, index, companies, principals, projects, grants, nil)

	company, err := service.CreateCompany(ctx, "Granite Construction", "granite")
	require.NoError(t, err)

	owner := provision(t, principals, "idp|owner")
	require.NoError(t, service.BootstrapOwner(ctx, company.CompanyID, owner.PrincipalID))

	return &fixture{
		service:    service,
		principals: principals,
		companies:  companies,
		projects:   projects,
		grants:     grants,
		company:    company,
		owner:      owner,
	}
}

func provision(t *testing.T, principals *memory.PrincipalStore, identityID string) *models.Principal {
	t.Helper()

	principal := &models.Principal{
		PrincipalID:    uuid.Must(uuid.NewV7()),
		IdentityID:     identityID,
		Email:          identityID + "@example.com",
		Name:           identityID,
		CompanyRole:    models.DefaultRole,
		LifecycleState: models.LifecyclePending,
		Active:         true,
	}
	require.NoError(t, principals.Create(context.Background(), principal))
	return principal
}

func TestBootstrapOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner, err := f.principals.Get(ctx, f.owner.PrincipalID)
	require.NoError(t, err)
	require.Equal(t, models.LifecycleApproved, owner.LifecycleState)
	require.Equal(t, models.RoleOwner, owner.CompanyRole)
	require.NotNil(t, owner.CompanyID)
	require.Equal(t, f.company.CompanyID, *owner.CompanyID)
}

func TestApprovalFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	worker := provision(t, f.principals, "idp|worker")

	t.Run("owner assigns and approves", func(t *testing.T) {
		require.NoError(t, f.service.AssignCompany(ctx, f.owner.PrincipalID, worker.PrincipalID, f.company.CompanyID, models.RoleFieldEmployee))

		result, err := f.service.ApprovePrincipal(ctx, f.owner.PrincipalID, worker.PrincipalID)
		require.NoError(t, err)
		require.True(t, result.Transitioned)
		require.Equal(t, f.owner.PrincipalID, *result.Principal.ApprovedBy)
	})

	t.Run("non-elevated member cannot approve", func(t *testing.T) {
		applicant := provision(t, f.principals, "idp|applicant")
		require.NoError(t, f.service.AssignCompany(ctx, f.owner.PrincipalID, applicant.PrincipalID, f.company.CompanyID, models.RoleFieldEmployee))

		_, err := f.service.ApprovePrincipal(ctx, worker.PrincipalID, applicant.PrincipalID)
		require.ErrorIs(t, err, access.ErrForbidden)
	})

	t.Run("owner rejects unassigned signup", func(t *testing.T) {
		stranger := provision(t, f.principals, "idp|stranger")

		result, err := f.service.RejectPrincipal(ctx, f.owner.PrincipalID, stranger.PrincipalID, "unrecognized applicant")
		require.NoError(t, err)
		require.True(t, result.Transitioned)
		require.Equal(t, "unrecognized applicant", result.Principal.RejectionReason)
	})
}

func TestAssignCompanyCrossTenant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other, err := f.service.CreateCompany(ctx, "Rival Builders", "rival")
	require.NoError(t, err)

	applicant := provision(t, f.principals, "idp|poached")

	// Granite's owner cannot pull people into Rival.
	err = f.service.AssignCompany(ctx, f.owner.PrincipalID, applicant.PrincipalID, other.CompanyID, models.RoleFieldEmployee)
	require.ErrorIs(t, err, access.ErrForbidden)
}

func TestAssignCompanySelfAssignment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("company-less signup cannot seat itself", func(t *testing.T) {
		signup := provision(t, f.principals, "idp|walk-in")

		err := f.service.AssignCompany(ctx, signup.PrincipalID, signup.PrincipalID, f.company.CompanyID, models.RoleOwner)
		require.ErrorIs(t, err, access.ErrForbidden)

		after, err := f.principals.Get(ctx, signup.PrincipalID)
		require.NoError(t, err)
		require.Nil(t, after.CompanyID)
		require.Equal(t, models.DefaultRole, after.CompanyRole)
	})

	t.Run("approved member cannot assign for its company", func(t *testing.T) {
		worker := provision(t, f.principals, "idp|settled")
		require.NoError(t, f.service.AssignCompany(ctx, f.owner.PrincipalID, worker.PrincipalID, f.company.CompanyID, models.RoleFieldEmployee))
		_, err := f.service.ApprovePrincipal(ctx, f.owner.PrincipalID, worker.PrincipalID)
		require.NoError(t, err)

		newcomer := provision(t, f.principals, "idp|newcomer")
		err = f.service.AssignCompany(ctx, worker.PrincipalID, newcomer.PrincipalID, f.company.CompanyID, models.RoleFieldEmployee)
		require.ErrorIs(t, err, access.ErrForbidden)
	})
}

func TestAssignCompanyInvalidRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	applicant := provision(t, f.principals, "idp|typo")
	err := f.service.AssignCompany(ctx, f.owner.PrincipalID, applicant.PrincipalID, f.company.CompanyID, models.CompanyRole("wizard"))
	require.ErrorIs(t, err, ErrInvalidRole)
}

func TestCreateProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("owner creates project", func(t *testing.T) {
		project, err := f.service.CreateProject(ctx, f.owner.PrincipalID, f.company.CompanyID, "Bridge Retrofit")
		require.NoError(t, err)
		require.Equal(t, f.company.CompanyID, project.CompanyID)
		require.Equal(t, models.ProjectStatusActive, project.Status)
	})

	t.Run("field employee cannot", func(t *testing.T) {
		worker := provision(t, f.principals, "idp|digger")
		require.NoError(t, f.service.AssignCompany(ctx, f.owner.PrincipalID, worker.PrincipalID, f.company.CompanyID, models.RoleFieldEmployee))
		_, err := f.service.ApprovePrincipal(ctx, f.owner.PrincipalID, worker.PrincipalID)
		require.NoError(t, err)

		_, err = f.service.CreateProject(ctx, worker.PrincipalID, f.company.CompanyID, "Side Job")
		require.ErrorIs(t, err, access.ErrForbidden)
	})
}

func TestGrantProjectAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	project, err := f.service.CreateProject(ctx, f.owner.PrincipalID, f.company.CompanyID, "Depot Rebuild")
	require.NoError(t, err)

	worker := provision(t, f.principals, "idp|carpenter")
	require.NoError(t, f.service.AssignCompany(ctx, f.owner.PrincipalID, worker.PrincipalID, f.company.CompanyID, models.RoleFieldEmployee))
	_, err = f.service.ApprovePrincipal(ctx, f.owner.PrincipalID, worker.PrincipalID)
	require.NoError(t, err)

	t.Run("owner grants and worker gains capability", func(t *testing.T) {
		require.NoError(t, f.service.GrantProjectAccess(ctx, f.owner.PrincipalID, &models.ProjectGrant{
			ProjectID:   project.ProjectID,
			PrincipalID: worker.PrincipalID,
			ProjectRole: "carpenter",
			CanEdit:     true,
		}))

		grant, err := f.grants.Get(ctx, project.ProjectID, worker.PrincipalID)
		require.NoError(t, err)
		require.True(t, grant.CanEdit)
		require.False(t, grant.CanApprove)
	})

	t.Run("worker cannot grant", func(t *testing.T) {
		other := provision(t, f.principals, "idp|other")
		require.NoError(t, f.service.AssignCompany(ctx, f.owner.PrincipalID, other.PrincipalID, f.company.CompanyID, models.RoleFieldEmployee))

		err := f.service.GrantProjectAccess(ctx, worker.PrincipalID, &models.ProjectGrant{
			ProjectID:   project.ProjectID,
			PrincipalID: other.PrincipalID,
			ProjectRole: "helper",
		})
		require.ErrorIs(t, err, access.ErrForbidden)
	})

	t.Run("cross tenant grantee is refused", func(t *testing.T) {
		rival, err := f.service.CreateCompany(ctx, "Rival Builders", "rival")
		require.NoError(t, err)

		outsider := provision(t, f.principals, "idp|outsider")
		rivalOwner := provision(t, f.principals, "idp|rival-owner")
		require.NoError(t, f.service.BootstrapOwner(ctx, rival.CompanyID, rivalOwner.PrincipalID))
		require.NoError(t, f.service.AssignCompany(ctx, rivalOwner.PrincipalID, outsider.PrincipalID, rival.CompanyID, models.RoleFieldEmployee))

		err = f.service.GrantProjectAccess(ctx, f.owner.PrincipalID, &models.ProjectGrant{
			ProjectID:   project.ProjectID,
			PrincipalID: outsider.PrincipalID,
			ProjectRole: "helper",
		})
		require.ErrorIs(t, err, ErrGrantCrossTenant)
	})

	t.Run("revoke removes the grant", func(t *testing.T) {
		require.NoError(t, f.service.RevokeProjectAccess(ctx, f.owner.PrincipalID, project.ProjectID, worker.PrincipalID))

		_, err := f.grants.Get(ctx, project.ProjectID, worker.PrincipalID)
		require.Error(t, err)
	})
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending := provision(t, f.principals, "idp|newbie")

	t.Run("pending principal edits own profile", func(t *testing.T) {
		require.NoError(t, f.service.UpdateProfile(ctx, pending.PrincipalID, pending.PrincipalID, "Norah Jones", "norah@example.com"))

		after, err := f.principals.Get(ctx, pending.PrincipalID)
		require.NoError(t, err)
		require.Equal(t, "Norah Jones", after.Name)
		require.Equal(t, "norah@example.com", after.Email)
		// Privileged fields untouched.
		require.Equal(t, models.LifecyclePending, after.LifecycleState)
	})

	t.Run("stranger cannot edit another profile", func(t *testing.T) {
		stranger := provision(t, f.principals, "idp|snoop")
		err := f.service.UpdateProfile(ctx, stranger.PrincipalID, pending.PrincipalID, "Hacked", "hacked@example.com")
		require.ErrorIs(t, err, access.ErrForbidden)
	})

	t.Run("owner edits a member profile", func(t *testing.T) {
		require.NoError(t, f.service.AssignCompany(ctx, f.owner.PrincipalID, pending.PrincipalID, f.company.CompanyID, models.RoleFieldEmployee))
		require.NoError(t, f.service.UpdateProfile(ctx, f.owner.PrincipalID, pending.PrincipalID, "Norah J.", "norah@example.com"))
	})
}

func TestDeactivatePrincipal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	worker := provision(t, f.principals, "idp|leaver")
	require.NoError(t, f.service.AssignCompany(ctx, f.owner.PrincipalID, worker.PrincipalID, f.company.CompanyID, models.RoleFieldEmployee))
	_, err := f.service.ApprovePrincipal(ctx, f.owner.PrincipalID, worker.PrincipalID)
	require.NoError(t, err)

	require.NoError(t, f.service.DeactivatePrincipal(ctx, f.owner.PrincipalID, worker.PrincipalID))

	// A deactivated principal cannot even read their own record.
	err = f.service.UpdateProfile(ctx, worker.PrincipalID, worker.PrincipalID, "x", "x@example.com")
	require.ErrorIs(t, err, access.ErrForbidden)

	require.NoError(t, f.service.ReactivatePrincipal(ctx, f.owner.PrincipalID, worker.PrincipalID))
	require.NoError(t, f.service.UpdateProfile(ctx, worker.PrincipalID, worker.PrincipalID, "Back Again", "back@example.com"))
}

func TestSetActiveSelfService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	worker := provision(t, f.principals, "idp|selfflip")
	require.NoError(t, f.service.AssignCompany(ctx, f.owner.PrincipalID, worker.PrincipalID, f.company.CompanyID, models.RoleFieldEmployee))
	_, err := f.service.ApprovePrincipal(ctx, f.owner.PrincipalID, worker.PrincipalID)
	require.NoError(t, err)

	t.Run("member cannot deactivate itself", func(t *testing.T) {
		err := f.service.DeactivatePrincipal(ctx, worker.PrincipalID, worker.PrincipalID)
		require.ErrorIs(t, err, access.ErrForbidden)
	})

	t.Run("deactivated member cannot reactivate itself", func(t *testing.T) {
		require.NoError(t, f.service.DeactivatePrincipal(ctx, f.owner.PrincipalID, worker.PrincipalID))

		err := f.service.ReactivatePrincipal(ctx, worker.PrincipalID, worker.PrincipalID)
		require.ErrorIs(t, err, access.ErrForbidden)

		after, err := f.principals.Get(ctx, worker.PrincipalID)
		require.NoError(t, err)
		require.False(t, after.Active)
	})
}

func TestListPendingPrincipals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := provision(t, f.principals, "idp|q1")
	second := provision(t, f.principals, "idp|q2")
	require.NoError(t, f.service.AssignCompany(ctx, f.owner.PrincipalID, first.PrincipalID, f.company.CompanyID, models.RoleFieldEmployee))
	require.NoError(t, f.service.AssignCompany(ctx, f.owner.PrincipalID, second.PrincipalID, f.company.CompanyID, models.RoleFieldEmployee))

	t.Run("owner sees queue", func(t *testing.T) {
		queue, err := f.service.ListPendingPrincipals(ctx, f.owner.PrincipalID, f.company.CompanyID)
		require.NoError(t, err)
		require.Len(t, queue, 2)
	})

	t.Run("approval drains queue", func(t *testing.T) {
		_, err := f.service.ApprovePrincipal(ctx, f.owner.PrincipalID, first.PrincipalID)
		require.NoError(t, err)

		queue, err := f.service.ListPendingPrincipals(ctx, f.owner.PrincipalID, f.company.CompanyID)
		require.NoError(t, err)
		require.Len(t, queue, 1)
		require.Equal(t, second.PrincipalID, queue[0].PrincipalID)
	})

	t.Run("pending member cannot see queue", func(t *testing.T) {
		_, err := f.service.ListPendingPrincipals(ctx, second.PrincipalID, f.company.CompanyID)
		require.ErrorIs(t, err, access.ErrForbidden)
	})
}
