package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/atlanticdynamic/cargolynx/internal/config"
	"github.com/atlanticdynamic/cargolynx/internal/fancy"
	"github.com/urfave/cli/v3"
)

func newValidateCmd() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"lint"},
		Usage:     "Validate a configuration file",
		ArgsUsage: "[config-file]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "tree",
				Aliases: []string{"t"},
				Usage:   "Show detailed tree view of the validated configuration",
			},
		},
		Action: validateAction,
	}
}

func validateAction(_ context.Context, cmd *cli.Command) error {
	// Check for config flag first
	configPath := cmd.String(flagConfig)

	// If no config flag, check for positional argument
	if configPath == "" {
		if cmd.Args().Len() < 1 {
			return cli.Exit(
				"config file path required (use the --config flag, or provide the config file as positional argument)",
				1,
			)
		}
		configPath = cmd.Args().First()
	}

	cfg, err := config.NewConfig(configPath)
	if err != nil {
		return cli.Exit(fmt.Errorf("validation failed: %w", err), 1)
	}

	w := cmd.Root().Writer
	fmt.Fprintln(w, fancy.ValidText(fmt.Sprintf("Configuration file %s is valid", configPath)))
	if cmd.Bool("tree") {
		fmt.Fprintln(w, cfg)
		return nil
	}
	fmt.Fprintln(w, renderConfigSummary(configPath, cfg))
	return nil
}

// renderConfigSummary creates a formatted summary string for the configuration
func renderConfigSummary(path string, cfg *config.Config) string {
	var summary strings.Builder

	summary.WriteString("\nConfig Summary:\n")
	summary.WriteString(fmt.Sprintf("- Path: %s\n", path))
	summary.WriteString(fmt.Sprintf("- Version: %s\n", cfg.Version))
	summary.WriteString(fmt.Sprintf("- Container: %s on port %d\n", cfg.Container.ID, cfg.Container.Port))
	summary.WriteString(fmt.Sprintf("- Runtimes: %d\n", len(cfg.Runtimes)))
	summary.WriteString(fmt.Sprintf("- Remote repositories: %d\n", len(cfg.Repositories.Remote)))
	summary.WriteString("\nUse --tree for a more detailed view of the config.")

	return summary.String()
}
