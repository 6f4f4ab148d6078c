package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/buildgrid/authcore/internal/models"
)

type ProjectCmd struct {
	Create ProjectCreateCmd `cmd:"" help:"Create a project"`
	Grant  GrantCmd         `cmd:"" help:"Grant a principal access to a project"`
	Revoke RevokeCmd        `cmd:"" help:"Revoke a principal's access to a project"`
}

type ProjectCreateCmd struct {
	Name    string `arg:"" help:"Project name"`
	Company string `help:"Owning company ID" required:""`
	Actor   string `help:"Acting principal ID" required:""`
}

func (p *ProjectCreateCmd) Run(ctx context.Context, globals *Globals) error {
	rt, err := setup(ctx, globals)
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	companyID, err := uuid.Parse(p.Company)
	if err != nil {
		return fmt.Errorf("invalid company id: %w", err)
	}
	actorID, err := uuid.Parse(p.Actor)
	if err != nil {
		return fmt.Errorf("invalid actor id: %w", err)
	}

	project, err := rt.service.CreateProject(ctx, actorID, companyID, p.Name)
	if err != nil {
		return err
	}

	fmt.Printf("Created project %s (%s)\n", project.ProjectID, project.Name)
	return nil
}

type GrantCmd struct {
	Project     string `arg:"" help:"Project ID"`
	PrincipalID string `arg:"" help:"Grantee principal ID"`
	Role        string `help:"Project role label" default:"member"`
	CanEdit     bool   `help:"Allow inserting and updating project records"`
	CanDelete   bool   `help:"Allow deleting project records"`
	CanApprove  bool   `help:"Allow approving workflow records"`
	Actor       string `help:"Acting principal ID" required:""`
}

func (g *GrantCmd) Run(ctx context.Context, globals *Globals) error {
	rt, err := setup(ctx, globals)
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	projectID, err := uuid.Parse(g.Project)
	if err != nil {
		return fmt.Errorf("invalid project id: %w", err)
	}
	principalID, actorID, err := parseSubjectActor(g.PrincipalID, g.Actor)
	if err != nil {
		return err
	}

	err = rt.service.GrantProjectAccess(ctx, actorID, &models.ProjectGrant{
		ProjectID:   projectID,
		PrincipalID: principalID,
		ProjectRole: g.Role,
		CanEdit:     g.CanEdit,
		CanDelete:   g.CanDelete,
		CanApprove:  g.CanApprove,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Granted %s on project %s to %s\n", g.Role, projectID, principalID)
	return nil
}

type RevokeCmd struct {
	Project     string `arg:"" help:"Project ID"`
	PrincipalID string `arg:"" help:"Grantee principal ID"`
	Actor       string `help:"Acting principal ID" required:""`
}

func (r *RevokeCmd) Run(ctx context.Context, globals *Globals) error {
	rt, err := setup(ctx, globals)
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	projectID, err := uuid.Parse(r.Project)
	if err != nil {
		return fmt.Errorf("invalid project id: %w", err)
	}
	principalID, actorID, err := parseSubjectActor(r.PrincipalID, r.Actor)
	if err != nil {
		return err
	}

	if err := rt.service.RevokeProjectAccess(ctx, actorID, projectID, principalID); err != nil {
		return err
	}

	fmt.Printf("Revoked access to project %s for %s\n", projectID, principalID)
	return nil
}
