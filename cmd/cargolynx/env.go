package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/atlanticdynamic/cargolynx/internal/archive"
	"github.com/atlanticdynamic/cargolynx/internal/artifact"
	"github.com/atlanticdynamic/cargolynx/internal/config"
	"github.com/atlanticdynamic/cargolynx/internal/container"
	"github.com/atlanticdynamic/cargolynx/internal/logging"
	"github.com/atlanticdynamic/cargolynx/internal/props"
	"github.com/atlanticdynamic/cargolynx/internal/session"
	"github.com/urfave/cli/v3"
)

// downloadsDir holds URL downloads inside the session directory.
const downloadsDir = "downloads"

// environment is what every session command works with: the resolved configuration,
// the session and the collaborators built from them.
type environment struct {
	cfg       *config.Config
	session   *session.Session
	lookup    props.Table
	resolver  *artifact.Resolver
	extractor *archive.Extractor
	logger    *slog.Logger
}

// loadConfig reads the --config file, or returns the defaults when none is given.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	path := cmd.String(flagConfig)
	if path == "" {
		return config.NewDefault(), nil
	}
	return config.NewConfig(path)
}

// parseDefines turns repeated key=value flags into a table.
func parseDefines(defines []string) (props.Table, error) {
	out := props.Table{}
	for _, d := range defines {
		key, value, ok := strings.Cut(d, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid define %q, expected key=value", d)
		}
		out[key] = value
	}
	return out, nil
}

func setupLogging(cmd *cli.Command, cfg *config.Config) (*slog.Logger, error) {
	format := cmd.String(flagLogFormat)
	if format == "" {
		format = string(cfg.Logging.Format)
	}
	level := cmd.String(flagLogLevel)
	if level == "" {
		level = string(cfg.Logging.Level)
	}
	return logging.SetupLogger(format, level, cmd.Root().ErrWriter)
}

// loadEnvironment resolves the configuration against the defines, opens the session and
// records the defines as session variables so later invocations see them.
func loadEnvironment(cmd *cli.Command) (*environment, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := setupLogging(cmd, cfg)
	if err != nil {
		return nil, err
	}

	defines, err := parseDefines(cmd.StringSlice(flagDefine))
	if err != nil {
		return nil, err
	}
	if dir := cmd.String(flagSessionDir); dir != "" {
		cfg.Session.Dir = dir
	}
	if err := cfg.Resolve(cfg.Lookup(defines)); err != nil {
		return nil, err
	}

	sess, err := session.Open(cfg.Session.Dir, session.WithLogger(logger.WithGroup("session")))
	if err != nil {
		return nil, err
	}
	vars := props.Merge(sess.Variables(), defines)
	sess.SetVariables(vars)
	if err := sess.Own(downloadsDir); err != nil {
		return nil, err
	}

	resolverOpts := []artifact.Option{
		artifact.WithLogger(logger.WithGroup("artifact")),
		artifact.WithRepositories(cfg.Repositories.Remote...),
		artifact.WithDownloadDir(sess.Path(downloadsDir)),
	}
	if cfg.Repositories.DisableThirdParty {
		resolverOpts = append(resolverOpts, artifact.WithoutThirdPartyRepository())
	}

	return &environment{
		cfg:       cfg,
		session:   sess,
		lookup:    cfg.Lookup(vars),
		resolver:  artifact.NewResolver(cfg.Repositories.Local, resolverOpts...),
		extractor: archive.NewExtractor(archive.WithLogger(logger.WithGroup("archive"))),
		logger:    logger,
	}, nil
}

func (e *environment) manager() (*container.Manager, error) {
	return container.NewManager(container.Options{
		Session:   e.session,
		Config:    e.cfg,
		Resolver:  e.resolver,
		Extractor: e.extractor,
		Lookup:    e.lookup,
	}, container.WithLogger(e.logger.WithGroup("container")))
}

// containerKey is the identity key named on the command line, or the configured one.
func (e *environment) containerKey(cmd *cli.Command) string {
	if cmd.Args().Len() > 0 {
		return cmd.Args().First()
	}
	return e.cfg.Container.ID
}
