package main

import (
	"github.com/urfave/cli/v3"
)

// Flag names shared by every command.
const (
	flagConfig     = "config"
	flagSessionDir = "session-dir"
	flagLogLevel   = "log-level"
	flagLogFormat  = "log-format"
	flagDefine     = "define"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "cargolynx",
		Version: Version,
		Usage:   "Prepare a service home and run a servlet container for integration tests",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "Path to a TOML or YAML configuration file",
				Sources: cli.EnvVars("CARGOLYNX_CONFIG"),
			},
			&cli.StringFlag{
				Name:    flagSessionDir,
				Usage:   "Session directory shared by every invocation of one build",
				Sources: cli.EnvVars("CARGOLYNX_SESSION_DIR"),
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "Log level (trace, debug, info, warn, error); overrides the config file",
			},
			&cli.StringFlag{
				Name:  flagLogFormat,
				Usage: "Log format (text, json); overrides the config file",
			},
			&cli.StringSliceFlag{
				Name:    flagDefine,
				Aliases: []string{"D"},
				Usage:   "Set a session variable as key=value, repeatable",
			},
		},
		Commands: []*cli.Command{
			newHomeCmd(),
			newStartCmd(),
			newStopCmd(),
			newStatusCmd(),
			newServeCmd(),
			newSessionCmd(),
			newResolveCmd(),
			newValidateCmd(),
			newVersionCmd(),
		},
	}
}
