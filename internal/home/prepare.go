// Package home prepares the service home directory: unpack the home archive, then apply
// the install properties through the validator and installer.
package home

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/atlanticdynamic/cargolynx/internal/artifact"
	"github.com/atlanticdynamic/cargolynx/internal/config"
	"github.com/atlanticdynamic/cargolynx/internal/install"
	"github.com/atlanticdynamic/cargolynx/internal/interpolation"
	"github.com/atlanticdynamic/cargolynx/internal/props"
)

// Resolver turns an archive reference into a local file.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (artifact.Result, error)
}

// Extractor unpacks an archive into a directory.
type Extractor interface {
	Extract(archivePath, destDir string) error
}

// Options is the context Prepare runs in.
type Options struct {
	Config    *config.Config
	Lookup    props.Table
	Resolver  Resolver
	Extractor Extractor
}

// Result describes a prepared home.
type Result struct {
	Dir     string
	Archive artifact.Result
	Options *install.Options
}

// Option configures Prepare.
type Option func(*preparer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *preparer) {
		p.logger = logger
	}
}

// WithLogHandler sets the log handler.
func WithLogHandler(handler slog.Handler) Option {
	return func(p *preparer) {
		p.logger = slog.New(handler)
	}
}

type preparer struct {
	logger *slog.Logger
}

// Prepare resolves and validates the install properties, unpacks the home archive into the
// home directory and installs the options there. Nothing is written when validation fails.
func Prepare(ctx context.Context, o Options, opts ...Option) (*Result, error) {
	p := &preparer{logger: slog.Default().WithGroup("home.Prepare")}
	for _, opt := range opts {
		opt(p)
	}

	if o.Config == nil || o.Resolver == nil || o.Extractor == nil {
		return nil, fmt.Errorf("%w: config, resolver and extractor are required", ErrPrepare)
	}
	cfg := o.Config.Home
	if cfg.Dir == "" {
		return nil, ErrNoHomeDir
	}
	lookup := o.Lookup
	if lookup == nil {
		lookup = o.Config.Lookup()
	}

	if _, err := os.Stat(cfg.InstallProperties); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoTemplate, cfg.InstallProperties)
	}
	source, err := props.LoadFile(cfg.InstallProperties)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPrepare, err)
	}
	installOpts, err := install.NewOptions(interpolation.Resolve(source, lookup))
	if err != nil {
		return nil, err
	}
	res := &Result{Dir: cfg.Dir, Options: installOpts}

	if cfg.Archive != "" {
		archive, err := o.Resolver.Resolve(ctx, cfg.Archive)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPrepare, err)
		}
		res.Archive = archive
		p.logger.Info("Unpacking home archive", "archive", archive.Path, "dir", cfg.Dir)
		if err := o.Extractor.Extract(archive.Path, cfg.Dir); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPrepare, err)
		}
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPrepare, err)
	}
	installer := install.NewInstaller(install.WithLogger(p.logger.WithGroup("install")))
	if err := installer.Install(ctx, installOpts, cfg.Dir); err != nil {
		return nil, err
	}

	p.logger.Info("Home prepared", "dir", cfg.Dir)
	return res, nil
}
