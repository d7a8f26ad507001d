package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func newStopCmd() *cli.Command {
	return &cli.Command{
		Name:      "stop",
		Usage:     "Stop a container started in this session",
		ArgsUsage: "[container-id]",
		Action:    stopAction,
	}
}

func stopAction(ctx context.Context, cmd *cli.Command) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return cli.Exit(err, 1)
	}
	m, err := env.manager()
	if err != nil {
		return cli.Exit(err, 1)
	}

	key := env.containerKey(cmd)
	h, ok := m.Find(key)
	if !ok {
		fmt.Fprintf(cmd.Root().Writer, "%s was not started in this session\n", key)
		return nil
	}
	if err := m.Stop(ctx, h); err != nil {
		return cli.Exit(err, 1)
	}

	fmt.Fprintf(cmd.Root().Writer, "%s is %s\n", key, h.GetState())
	return nil
}
