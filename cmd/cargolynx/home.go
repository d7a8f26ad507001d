package main

import (
	"context"
	"fmt"

	"github.com/atlanticdynamic/cargolynx/internal/home"
	"github.com/urfave/cli/v3"
)

func newHomeCmd() *cli.Command {
	return &cli.Command{
		Name:   "home",
		Usage:  "Unpack the service home and apply the install properties",
		Action: homeAction,
	}
}

func homeAction(ctx context.Context, cmd *cli.Command) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return cli.Exit(err, 1)
	}

	res, err := home.Prepare(ctx, home.Options{
		Config:    env.cfg,
		Lookup:    env.lookup,
		Resolver:  env.resolver,
		Extractor: env.extractor,
	}, home.WithLogger(env.logger.WithGroup("home")))
	if err != nil {
		return cli.Exit(err, 1)
	}
	if err := env.session.Save(); err != nil {
		return cli.Exit(err, 1)
	}

	fmt.Fprintf(cmd.Root().Writer, "Home prepared in %s\n", res.Dir)
	return nil
}
