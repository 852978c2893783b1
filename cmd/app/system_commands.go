package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/connectkit/credvault/cmd/app/commands"
	"github.com/connectkit/credvault/internal/app"
	"github.com/connectkit/credvault/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the connections API server",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "sweeps",
			Usage: "Start the background sweeps and notification processor",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunSweeps(ctx, version)
			},
		},
		{
			Name:  "migrate",
			Usage: "Run database migrations",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
			},
		},
		{
			Name:  "generate-secret",
			Usage: "Generate a master secret for envelope encryption",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunGenerateSecret(commands.DefaultIO().Writer)
			},
		},
	}
}
