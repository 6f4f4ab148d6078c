package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/buildgrid/authcore/internal/directory"
	"github.com/buildgrid/authcore/internal/models"
)

type PrincipalCmd struct {
	Provision  ProvisionCmd     `cmd:"" help:"Provision a principal from an identity event"`
	Approve    ApproveCmd       `cmd:"" help:"Approve a pending principal"`
	Reject     RejectCmd        `cmd:"" help:"Reject a pending principal"`
	Assign     AssignCompanyCmd `cmd:"" help:"Assign a principal to a company"`
	Pending    PendingCmd       `cmd:"" help:"List a company's approval queue"`
	Deactivate DeactivateCmd    `cmd:"" help:"Deactivate a principal"`
	Reactivate ReactivateCmd    `cmd:"" help:"Reactivate a principal"`
}

type ProvisionCmd struct {
	IdentityID string `arg:"" help:"Identity provider token"`
	Email      string `help:"Email address" required:""`
	Name       string `help:"Display name" default:""`
}

func (p *ProvisionCmd) Run(ctx context.Context, globals *Globals) error {
	rt, err := setup(ctx, globals)
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	principal, err := rt.provisioner.IdentityCreated(ctx, directory.IdentityCreatedEvent{
		IdentityID: p.IdentityID,
		Email:      p.Email,
		Name:       p.Name,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Principal %s (%s)\n", principal.PrincipalID, principal.LifecycleState)
	return nil
}

type ApproveCmd struct {
	PrincipalID string `arg:"" help:"Principal to approve"`
	Actor       string `help:"Acting principal ID" required:""`
}

func (a *ApproveCmd) Run(ctx context.Context, globals *Globals) error {
	rt, err := setup(ctx, globals)
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	principalID, actorID, err := parseSubjectActor(a.PrincipalID, a.Actor)
	if err != nil {
		return err
	}

	result, err := rt.service.ApprovePrincipal(ctx, actorID, principalID)
	if err != nil {
		return err
	}

	if !result.Transitioned {
		fmt.Printf("Principal %s was already approved by %s\n", principalID, *result.Principal.ApprovedBy)
		return nil
	}
	fmt.Printf("Approved principal %s\n", principalID)
	return nil
}

type RejectCmd struct {
	PrincipalID string `arg:"" help:"Principal to reject"`
	Actor       string `help:"Acting principal ID" required:""`
	Reason      string `help:"Rejection reason" required:""`
}

func (r *RejectCmd) Run(ctx context.Context, globals *Globals) error {
	rt, err := setup(ctx, globals)
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	principalID, actorID, err := parseSubjectActor(r.PrincipalID, r.Actor)
	if err != nil {
		return err
	}

	result, err := rt.service.RejectPrincipal(ctx, actorID, principalID, r.Reason)
	if err != nil {
		return err
	}

	if !result.Transitioned {
		fmt.Printf("Principal %s was already rejected\n", principalID)
		return nil
	}
	fmt.Printf("Rejected principal %s\n", principalID)
	return nil
}

type AssignCompanyCmd struct {
	PrincipalID string `arg:"" help:"Principal to assign"`
	Company     string `help:"Target company ID" required:""`
	Role        string `help:"Company role" default:"field_employee"`
	Actor       string `help:"Acting principal ID" required:""`
}

func (a *AssignCompanyCmd) Run(ctx context.Context, globals *Globals) error {
	rt, err := setup(ctx, globals)
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	principalID, actorID, err := parseSubjectActor(a.PrincipalID, a.Actor)
	if err != nil {
		return err
	}
	companyID, err := uuid.Parse(a.Company)
	if err != nil {
		return fmt.Errorf("invalid company id: %w", err)
	}

	if err := rt.service.AssignCompany(ctx, actorID, principalID, companyID, models.CompanyRole(a.Role)); err != nil {
		return err
	}

	fmt.Printf("Assigned principal %s to company %s as %s\n", principalID, companyID, a.Role)
	return nil
}

type PendingCmd struct {
	Company string `arg:"" help:"Company ID"`
	Actor   string `help:"Acting principal ID" required:""`
}

func (p *PendingCmd) Run(ctx context.Context, globals *Globals) error {
	rt, err := setup(ctx, globals)
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	companyID, actorID, err := parseSubjectActor(p.Company, p.Actor)
	if err != nil {
		return err
	}

	queue, err := rt.service.ListPendingPrincipals(ctx, actorID, companyID)
	if err != nil {
		return err
	}

	if len(queue) == 0 {
		fmt.Println("No pending principals.")
		return nil
	}

	fmt.Printf("%-36s %-30s %s\n", "Principal ID", "Email", "Name")
	for _, principal := range queue {
		fmt.Printf("%-36s %-30s %s\n", principal.PrincipalID, principal.Email, principal.Name)
	}
	return nil
}

type DeactivateCmd struct {
	PrincipalID string `arg:"" help:"Principal to deactivate"`
	Actor       string `help:"Acting principal ID" required:""`
}

func (d *DeactivateCmd) Run(ctx context.Context, globals *Globals) error {
	rt, err := setup(ctx, globals)
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	principalID, actorID, err := parseSubjectActor(d.PrincipalID, d.Actor)
	if err != nil {
		return err
	}

	if err := rt.service.DeactivatePrincipal(ctx, actorID, principalID); err != nil {
		return err
	}
	fmt.Printf("Deactivated principal %s\n", principalID)
	return nil
}

type ReactivateCmd struct {
	PrincipalID string `arg:"" help:"Principal to reactivate"`
	Actor       string `help:"Acting principal ID" required:""`
}

func (r *ReactivateCmd) Run(ctx context.Context, globals *Globals) error {
	rt, err := setup(ctx, globals)
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	principalID, actorID, err := parseSubjectActor(r.PrincipalID, r.Actor)
	if err != nil {
		return err
	}

	if err := rt.service.ReactivatePrincipal(ctx, actorID, principalID); err != nil {
		return err
	}
	fmt.Printf("Reactivated principal %s\n", principalID)
	return nil
}

func parseSubjectActor(subject, actor string) (uuid.UUID, uuid.UUID, error) {
	subjectID, err := uuid.Parse(subject)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid principal id: %w", err)
	}
	actorID, err := uuid.Parse(actor)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid actor id: %w", err)
	}
	return subjectID, actorID, nil
}
