package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/connectkit/credvault/cmd/app/commands"
	"github.com/connectkit/credvault/internal/app"
	"github.com/connectkit/credvault/internal/config"
)

func getSweepCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "refresh-sweep",
			Usage: "Run a single proactive token refresh pass",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				sweeper, err := container.RefreshSweep()
				if err != nil {
					return err
				}

				return commands.RunRefreshSweep(
					ctx,
					sweeper,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "validation-sweep",
			Usage: "Run a single connection validation pass",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				sweeper, err := container.ValidationSweep()
				if err != nil {
					return err
				}

				return commands.RunValidationSweep(
					ctx,
					sweeper,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("format"),
				)
			},
		},
	}
}
