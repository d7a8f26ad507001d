package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func newStartCmd() *cli.Command {
	return &cli.Command{
		Name:      "start",
		Usage:     "Provision the container if needed and start it in the background",
		ArgsUsage: "[container-id]",
		Action:    startAction,
	}
}

func startAction(ctx context.Context, cmd *cli.Command) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return cli.Exit(err, 1)
	}
	m, err := env.manager()
	if err != nil {
		return cli.Exit(err, 1)
	}

	key := env.containerKey(cmd)
	h, err := m.Get(ctx, key)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if err := m.Start(ctx, h); err != nil {
		return cli.Exit(err, 1)
	}

	fmt.Fprintf(cmd.Root().Writer, "%s is running on port %d (pid %d)\n", key, h.Port(), h.PID())
	return nil
}
