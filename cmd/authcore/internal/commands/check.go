package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/buildgrid/authcore/internal/authz"
)

// CheckCmd evaluates an access check and prints the full decision. This is
// an operator diagnostic; service callers get only a uniform forbidden.
type CheckCmd struct {
	PrincipalID string `arg:"" help:"Acting principal ID"`
	Action      string `arg:"" help:"Action (select, insert, update, delete, approve)"`
	Resource    string `help:"Resource ID" required:""`
	Kind        string `help:"Resource kind (principal, company, project, record)" default:"record"`
	Project     string `help:"Project the resource belongs to (project-scoped kinds)" default:""`
	Company     string `help:"Company the resource belongs to (company-scoped kinds)" default:""`
}

func (c *CheckCmd) Run(ctx context.Context, globals *Globals) error {
	rt, err := setup(ctx, globals)
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	principalID, err := uuid.Parse(c.PrincipalID)
	if err != nil {
		return fmt.Errorf("invalid principal id: %w", err)
	}
	resourceID, err := uuid.Parse(c.Resource)
	if err != nil {
		return fmt.Errorf("invalid resource id: %w", err)
	}

	action := authz.Action(c.Action)
	if !action.Valid() {
		return fmt.Errorf("invalid action %q", c.Action)
	}

	var ref authz.ResourceRef
	switch {
	case c.Project != "":
		projectID, err := uuid.Parse(c.Project)
		if err != nil {
			return fmt.Errorf("invalid project id: %w", err)
		}
		ref, err = rt.index.RecordRef(ctx, authz.ResourceKind(c.Kind), resourceID, projectID)
		if err != nil {
			return err
		}
	case c.Company != "":
		companyID, err := uuid.Parse(c.Company)
		if err != nil {
			return fmt.Errorf("invalid company id: %w", err)
		}
		ref = authz.ResourceRef{
			Kind:      authz.ResourceKind(c.Kind),
			ID:        resourceID,
			CompanyID: companyID,
		}
	default:
		return fmt.Errorf("either --project or --company is required")
	}

	decision, err := rt.checker.Explain(ctx, principalID, action, ref)
	if err != nil {
		return err
	}

	if decision.Allowed {
		fmt.Println("ALLOW")
		return nil
	}
	fmt.Printf("DENY (%s)\n", decision.Reason)
	return nil
}
