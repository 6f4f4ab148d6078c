package commands

import (
	"context"
	"fmt"

	"github.com/buildgrid/authcore/internal/store/postgres"
)

type MigrateCmd struct{}

func (m *MigrateCmd) Run(ctx context.Context, globals *Globals) error {
	rt, err := setup(ctx, globals)
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	if err := postgres.RunMigrations(ctx, rt.pool); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	fmt.Println("Migrations applied.")
	return nil
}
