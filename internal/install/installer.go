package install

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/atlanticdynamic/cargolynx/internal/props"
	"github.com/pelletier/go-toml/v2"
)

// Layout of an installed home, relative to the target directory.
const (
	ConfigDir    = "config"
	ModulesDir   = "config/modules"
	DataDir      = "data"
	LogsDir      = "logs"
	ServerFile   = "config/server.toml"
	SnapshotFile = "config/install.properties"
	JDBCFile     = "config/jdbc.properties"

	filePerm  = 0o644
	dirPerm   = 0o755
	moduleExt = ".toml"
)

// Installer writes the configuration described by an Options value into a home directory.
type Installer struct {
	logger *slog.Logger
}

// Option configures an Installer.
type Option func(*Installer)

// WithLogger sets a custom logger for the Installer.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Installer) {
		i.logger = logger
	}
}

// WithLogHandler sets a custom log handler for the Installer.
func WithLogHandler(handler slog.Handler) Option {
	return func(i *Installer) {
		i.logger = slog.New(handler)
	}
}

// NewInstaller creates an Installer.
func NewInstaller(opts ...Option) *Installer {
	i := &Installer{
		logger: slog.Default().WithGroup("install.Installer"),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Install rewrites the configuration under targetDir. The first I/O failure aborts the run;
// files already written stay in place.
func (i *Installer) Install(ctx context.Context, opts *Options, targetDir string) error {
	if opts == nil {
		return fmt.Errorf("%w: no options", ErrInstallationFailed)
	}
	info, err := os.Stat(targetDir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInstallationFailed, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInstallationFailed, targetDir)
	}

	logger := i.logger.With("target", targetDir)
	logger.Debug("Installing configuration")

	steps := []func(*slog.Logger, *Options, string) error{
		i.makeDirs,
		i.writeServer,
		i.writeSnapshot,
		i.writeModules,
		i.writeJDBC,
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrInstallationFailed, err)
		}
		if err := step(logger, opts, targetDir); err != nil {
			return fmt.Errorf("%w: %w", ErrInstallationFailed, err)
		}
	}

	logger.Info("Configuration installed", "modules", opts.Modules.Enabled())
	return nil
}

func (i *Installer) makeDirs(_ *slog.Logger, _ *Options, target string) error {
	for _, d := range []string{ConfigDir, ModulesDir, DataDir, LogsDir} {
		if err := os.MkdirAll(filepath.Join(target, d), dirPerm); err != nil {
			return err
		}
	}
	return nil
}

type serverDoc struct {
	Server   serverSection   `toml:"server"`
	SSL      sslSection      `toml:"ssl"`
	Auth     authSection     `toml:"auth"`
	Home     homeSection     `toml:"home"`
	Database databaseSection `toml:"database"`
	Modules  modulesSection  `toml:"modules"`
}

type serverSection struct {
	Host         string `toml:"host"`
	Context      string `toml:"context"`
	HTTPPort     int    `toml:"http_port"`
	ShutdownPort int    `toml:"shutdown_port"`
}

type sslSection struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port,omitempty"`
}

type authSection struct {
	Required bool `toml:"required"`
}

type homeSection struct {
	Dir string `toml:"dir"`
}

type databaseSection struct {
	Type     string `toml:"type"`
	URL      string `toml:"url,omitempty"`
	Username string `toml:"username,omitempty"`
	Driver   string `toml:"driver,omitempty"`
}

type modulesSection struct {
	Enabled []string `toml:"enabled"`
}

func (i *Installer) writeServer(logger *slog.Logger, opts *Options, target string) error {
	doc := serverDoc{
		Server: serverSection{
			Host:         opts.ServerHost,
			Context:      opts.ServerContext,
			HTTPPort:     opts.HTTPPort,
			ShutdownPort: opts.ShutdownPort,
		},
		SSL:  sslSection{Enabled: opts.SSLEnabled},
		Auth: authSection{Required: opts.AuthRequired},
		Home: homeSection{Dir: opts.HomeDir},
		Database: databaseSection{
			Type:     string(opts.Database.Type),
			URL:      opts.Database.URL,
			Username: opts.Database.Username,
			Driver:   opts.Database.Driver,
		},
		Modules: modulesSection{Enabled: opts.Modules.Enabled()},
	}
	if opts.SSLEnabled {
		doc.SSL.Port = opts.SSLPort
	}
	if doc.Modules.Enabled == nil {
		doc.Modules.Enabled = []string{}
	}
	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", ServerFile, err)
	}
	return writeIfChanged(logger, filepath.Join(target, ServerFile), data)
}

func (i *Installer) writeSnapshot(logger *slog.Logger, opts *Options, target string) error {
	data, err := opts.Table().Encode()
	if err != nil {
		return fmt.Errorf("encoding %s: %w", SnapshotFile, err)
	}
	return writeIfChanged(logger, filepath.Join(target, SnapshotFile), data)
}

type moduleDoc struct {
	Module    moduleSection     `toml:"module"`
	Messaging *messagingSection `toml:"messaging,omitempty"`
	XACML     *xacmlSection     `toml:"xacml,omitempty"`
	Index     *indexSection     `toml:"resourceindex,omitempty"`
}

type moduleSection struct {
	Name    string `toml:"name"`
	Enabled bool   `toml:"enabled"`
}

type messagingSection struct {
	URI string `toml:"uri"`
}

type xacmlSection struct {
	PolicyDir string `toml:"policy_dir"`
}

type indexSection struct {
	DataDir string `toml:"data_dir"`
}

func moduleDocument(name string, opts *Options) moduleDoc {
	doc := moduleDoc{Module: moduleSection{Name: name, Enabled: true}}
	switch name {
	case ModuleMessaging:
		doc.Messaging = &messagingSection{URI: opts.MessagingURI}
	case ModuleXACML:
		doc.XACML = &xacmlSection{PolicyDir: filepath.Join(opts.HomeDir, DataDir, "policies")}
	case ModuleResourceIndex:
		doc.Index = &indexSection{DataDir: filepath.Join(opts.HomeDir, DataDir, "resourceindex")}
	}
	return doc
}

func (i *Installer) writeModules(logger *slog.Logger, opts *Options, target string) error {
	enabled := opts.Modules.Enabled()
	for _, name := range AllModules {
		path := filepath.Join(target, ModulesDir, name+moduleExt)
		if !slices.Contains(enabled, name) {
			if err := removeIfExists(logger, path); err != nil {
				return err
			}
			continue
		}
		data, err := toml.Marshal(moduleDocument(name, opts))
		if err != nil {
			return fmt.Errorf("encoding module %s: %w", name, err)
		}
		if err := writeIfChanged(logger, path, data); err != nil {
			return err
		}
	}
	return nil
}

func (i *Installer) writeJDBC(logger *slog.Logger, opts *Options, target string) error {
	path := filepath.Join(target, JDBCFile)
	if opts.Database.Embedded() {
		return removeIfExists(logger, path)
	}
	data, err := props.Table{
		"jdbc.driver":   opts.Database.Driver,
		"jdbc.url":      opts.Database.URL,
		"jdbc.username": opts.Database.Username,
		"jdbc.password": opts.Database.Password,
	}.Encode()
	if err != nil {
		return fmt.Errorf("encoding %s: %w", JDBCFile, err)
	}
	return writeIfChanged(logger, path, data)
}

func writeIfChanged(logger *slog.Logger, path string, data []byte) error {
	current, err := os.ReadFile(path)
	switch {
	case err == nil && bytes.Equal(current, data):
		logger.Debug("File unchanged", "path", path)
		return nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return err
	}
	if err := os.WriteFile(path, data, filePerm); err != nil {
		return err
	}
	logger.Debug("File written", "path", path, "bytes", len(data))
	return nil
}

func removeIfExists(logger *slog.Logger, path string) error {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err == nil {
		logger.Debug("File removed", "path", path)
	}
	return err
}

