package main

import (
	"context"
	"fmt"

	"github.com/robbyt/go-supervisor/supervisor"
	"github.com/urfave/cli/v3"
)

func newServeCmd() *cli.Command {
	return &cli.Command{
		Name:      "serve",
		Usage:     "Run the container in the foreground until interrupted",
		ArgsUsage: "[container-id]",
		Action:    serveAction,
	}
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
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

	super, err := supervisor.New(
		supervisor.WithRunnables(h),
		supervisor.WithLogHandler(env.logger.Handler()),
		supervisor.WithContext(ctx),
	)
	if err != nil {
		return cli.Exit(fmt.Errorf("failed to create supervisor: %w", err), 1)
	}
	if err := super.Run(); err != nil {
		return cli.Exit(fmt.Errorf("failed to run container: %w", err), 1)
	}

	env.logger.Info("Serve shutdown complete", "key", key, "state", h.GetState())
	return nil
}
