package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func newSessionCmd() *cli.Command {
	return &cli.Command{
		Name:  "session",
		Usage: "Manage the build session",
		Commands: []*cli.Command{
			{
				Name:    "end",
				Aliases: []string{"reset"},
				Usage:   "Stop running containers and discard everything the session provisioned",
				Action:  sessionEndAction,
			},
		},
	}
}

func sessionEndAction(ctx context.Context, cmd *cli.Command) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return cli.Exit(err, 1)
	}
	m, err := env.manager()
	if err != nil {
		return cli.Exit(err, 1)
	}

	ended := env.session.ID()
	if err := m.End(ctx); err != nil {
		return cli.Exit(err, 1)
	}

	fmt.Fprintf(cmd.Root().Writer, "Session %s ended\n", ended)
	return nil
}
