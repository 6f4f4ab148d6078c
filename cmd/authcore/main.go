package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/buildgrid/authcore/cmd/authcore/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Migrate   commands.MigrateCmd   `cmd:"" help:"Apply database migrations"`
		Company   commands.CompanyCmd   `cmd:"" help:"Manage companies"`
		Principal commands.PrincipalCmd `cmd:"" help:"Manage principals"`
		Project   commands.ProjectCmd   `cmd:"" help:"Manage projects and grants"`
		Check     commands.CheckCmd     `cmd:"" help:"Evaluate an access check"`
		Config    string                `help:"Path to the YAML config file." default:"authcore.yaml"`
		Debug     bool                  `help:"Enable debug mode."`
		Version   kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version, Config: cli.Config})
	cmd.FatalIfErrorf(err)
}
