package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type CompanyCmd struct {
	Create CompanyCreateCmd `cmd:"" help:"Create a company"`
	List   CompanyListCmd   `cmd:"" help:"List companies"`
}

type CompanyCreateCmd struct {
	Name  string `arg:"" help:"Display name of the company"`
	Slug  string `help:"URL-safe unique identifier" required:""`
	Owner string `help:"Principal ID of a pending signup to bootstrap as owner" default:""`
}

func (c *CompanyCreateCmd) Run(ctx context.Context, globals *Globals) error {
	rt, err := setup(ctx, globals)
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	company, err := rt.service.CreateCompany(ctx, c.Name, c.Slug)
	if err != nil {
		return err
	}

	fmt.Printf("Created company %s (%s)\n", company.CompanyID, company.Slug)

	if c.Owner != "" {
		ownerID, err := uuid.Parse(c.Owner)
		if err != nil {
			return fmt.Errorf("invalid owner principal id: %w", err)
		}
		if err := rt.service.BootstrapOwner(ctx, company.CompanyID, ownerID); err != nil {
			return err
		}
		fmt.Printf("Bootstrapped owner %s\n", ownerID)
	}

	return nil
}

type CompanyListCmd struct{}

func (c *CompanyListCmd) Run(ctx context.Context, globals *Globals) error {
	rt, err := setup(ctx, globals)
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	companies, err := rt.companies.List(ctx)
	if err != nil {
		return err
	}

	if len(companies) == 0 {
		fmt.Println("No companies.")
		return nil
	}

	fmt.Printf("%-36s %-20s %-8s %s\n", "Company ID", "Slug", "Active", "Name")
	for _, company := range companies {
		fmt.Printf("%-36s %-20s %-8t %s\n", company.CompanyID, company.Slug, company.Active, company.Name)
	}
	return nil
}
