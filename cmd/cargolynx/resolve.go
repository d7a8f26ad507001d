package main

import (
	"context"
	"fmt"

	"github.com/atlanticdynamic/cargolynx/internal/interpolation"
	"github.com/atlanticdynamic/cargolynx/internal/props"
	"github.com/urfave/cli/v3"
)

func newResolveCmd() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Print a properties file with ${...} tokens substituted from the session",
		ArgsUsage: "[properties-file]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the result to a file instead of stdout",
			},
		},
		Action: resolveAction,
	}
}

func resolveAction(_ context.Context, cmd *cli.Command) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return cli.Exit(err, 1)
	}

	path := env.cfg.Home.InstallProperties
	if cmd.Args().Len() > 0 {
		path = cmd.Args().First()
	}
	source, err := props.LoadFile(path)
	if err != nil {
		return cli.Exit(err, 1)
	}
	resolved := interpolation.Resolve(source, env.lookup)

	if err := env.session.Save(); err != nil {
		return cli.Exit(err, 1)
	}

	if out := cmd.String("output"); out != "" {
		if err := resolved.WriteFile(out, 0o644); err != nil {
			return cli.Exit(err, 1)
		}
		fmt.Fprintf(cmd.Root().Writer, "Wrote %d properties to %s\n", len(resolved), out)
		return nil
	}

	data, err := resolved.Encode()
	if err != nil {
		return cli.Exit(err, 1)
	}
	_, err = cmd.Root().Writer.Write(data)
	return err
}
