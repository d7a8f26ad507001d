package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/atlanticdynamic/cargolynx/internal/config"
	"github.com/atlanticdynamic/cargolynx/internal/finitestate"
	"github.com/atlanticdynamic/cargolynx/internal/interpolation"
	"github.com/atlanticdynamic/cargolynx/internal/props"
	"github.com/gofrs/uuid/v5"
)

// Runtime variables available to command, env, template and replacement text.
const (
	VarID               = "runtime.id"
	VarKey              = "runtime.key"
	VarHome             = "runtime.home"
	VarBase             = "runtime.base"
	VarPort             = "runtime.port"
	VarShutdownPort     = "runtime.shutdown.port"
	VarAJPPort          = "runtime.ajp.port"
	VarLogFile          = "runtime.log.file"
	VarContext          = "runtime.context"
	VarDeployable       = "runtime.deployable"
	VarSystemProperties = "runtime.system.properties"
	VarSyspropPrefix    = "runtime.sysprop."
)

func (m *Manager) provision(ctx context.Context, key string) (*Handle, error) {
	rt, ok := m.cfg.Runtimes[key]
	h, err := m.newHandle(key, rt, uuid.Must(uuid.NewV6()), finitestate.StatusUninstalled)
	if err != nil {
		return nil, m.fail(key, nil, err)
	}
	if !ok {
		return nil, m.fail(key, h, fmt.Errorf("%w: %s", config.ErrUnknownRuntime, key))
	}

	h.logger.Info("Provisioning container", "archive", rt.Archive)

	if err := m.install(ctx, h); err != nil {
		return nil, m.fail(key, h, err)
	}
	if err := h.fsm.Transition(finitestate.StatusInstalled); err != nil {
		return nil, m.fail(key, h, err)
	}

	if err := m.configure(ctx, h); err != nil {
		return nil, m.fail(key, h, err)
	}
	if err := h.fsm.Transition(finitestate.StatusConfigured); err != nil {
		return nil, m.fail(key, h, err)
	}

	reg := m.session.Registry()
	reg.Put(key, h)
	h.logger.Info("Container provisioned", "home", h.homeDir, "base", h.baseDir)
	m.writeProvisionLog(h)

	if err := m.save(); err != nil {
		// an unsaved handle is not handed out; the next Get provisions again
		reg.Remove(key)
		return nil, err
	}
	return h, nil
}

// install resolves and unpacks the runtime archive, then locates the runtime home.
func (m *Manager) install(ctx context.Context, h *Handle) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res, err := m.resolver.Resolve(ctx, h.runtime.Archive)
	if err != nil {
		return err
	}
	h.logger.Debug("Resolved runtime archive", "path", res.Path, "repository", res.Repository)

	root, configured := m.cfg.Container.HomeDir, true
	if root == "" {
		root, configured = m.session.Path(extractsDir, h.key), false
	}
	if err := clearExtractRoot(root, configured); err != nil {
		return err
	}
	if err := m.extractor.Extract(res.Path, root); err != nil {
		return err
	}

	home, err := m.layout(root)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(root, extractMarker), []byte(res.Path+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to mark %s: %w", root, err)
	}
	home, err = filepath.Abs(home)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLayout, err)
	}
	h.homeDir = home
	h.logger.Debug("Runtime home selected", "home", home)

	return m.markExecutable(h)
}

// clearExtractRoot empties root so the layout policy only sees the new archive. A
// configured directory is cleared only when an earlier extraction filled it; one holding
// anything else is refused.
func clearExtractRoot(root string, configured bool) error {
	if configured {
		entries, err := os.ReadDir(root)
		switch {
		case errors.Is(err, fs.ErrNotExist), err == nil && len(entries) == 0:
			return nil
		case err != nil:
			return fmt.Errorf("%w: %w", ErrLayout, err)
		}
		if _, err := os.Stat(filepath.Join(root, extractMarker)); err != nil {
			return fmt.Errorf("%w: %s is not empty and was not filled by an earlier extraction", ErrLayout, root)
		}
	}
	if err := os.RemoveAll(root); err != nil {
		return fmt.Errorf("failed to clear %s: %w", root, err)
	}
	return nil
}

func (m *Manager) markExecutable(h *Handle) error {
	for _, pattern := range h.runtime.Executables {
		matches, err := filepath.Glob(filepath.Join(h.homeDir, filepath.FromSlash(pattern)))
		if err != nil {
			return fmt.Errorf("invalid executable pattern %q: %w", pattern, err)
		}
		for _, path := range matches {
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			if info.IsDir() {
				continue
			}
			if err := os.Chmod(path, info.Mode().Perm()|0o111); err != nil {
				return fmt.Errorf("failed to make %s executable: %w", path, err)
			}
		}
	}
	return nil
}

// configure builds the standalone configuration in the handle's base directory and
// attaches the deployable.
func (m *Manager) configure(ctx context.Context, h *Handle) error {
	ct := m.cfg.Container

	h.baseDir = m.session.Path(containersDir, h.key, baseDirName)
	if err := os.RemoveAll(h.baseDir); err != nil {
		return fmt.Errorf("failed to clear %s: %w", h.baseDir, err)
	}
	for _, dir := range append([]string{""}, h.runtime.BaseDirs...) {
		if err := os.MkdirAll(filepath.Join(h.baseDir, filepath.FromSlash(dir)), 0o755); err != nil {
			return fmt.Errorf("failed to create base directory: %w", err)
		}
	}

	logFile, err := filepath.Abs(ct.LogFile)
	if err != nil {
		return fmt.Errorf("invalid log file %q: %w", ct.LogFile, err)
	}
	h.logFile = logFile
	h.port = ct.Port
	h.sysProps = m.systemProperties()

	d, err := m.deployable(ctx, h.runtime)
	if err != nil {
		return err
	}
	h.deployable = d

	vars := m.variables(h)
	if err := m.render(h, vars); err != nil {
		return err
	}

	if h.deployable != nil {
		dest := h.DeployedPath()
		if err := copyFile(h.deployable.Path, dest); err != nil {
			return fmt.Errorf("failed to deploy %s: %w", h.deployable.Path, err)
		}
		h.logger.Info("Deployable attached", "context", h.deployable.Context, "path", dest)
	}
	return nil
}

// deployable picks the build's own artifact when its packaging matches the runtime's
// deployable type, otherwise the configured application archive.
func (m *Manager) deployable(ctx context.Context, rt config.RuntimeConfig) (*Deployable, error) {
	ref := m.cfg.Container.AppArchive
	project := m.cfg.Project
	if project.Artifact != "" && strings.EqualFold(project.Packaging, rt.DeployableType) {
		ref = project.Artifact
	}
	if ref == "" {
		m.logger.Warn("No application archive configured, nothing will be deployed")
		return nil, nil
	}

	res, err := m.resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &Deployable{Path: res.Path, Context: m.cfg.Container.Context}, nil
}

// systemProperties merges the passthrough properties with the home directory property.
func (m *Manager) systemProperties() props.Table {
	out := props.Table(m.cfg.Container.SystemProperties).Clone()
	name := m.cfg.Container.HomeProperty
	if name == "" || m.cfg.Home.Dir == "" {
		return out
	}
	if _, ok := out[name]; !ok {
		home, err := filepath.Abs(m.cfg.Home.Dir)
		if err != nil {
			home = m.cfg.Home.Dir
		}
		out[name] = home
	}
	return out
}

// variables layers the runtime.* variables over the manager's lookup table.
func (m *Manager) variables(h *Handle) props.Table {
	ct := m.cfg.Container
	vars := props.Table{
		VarID:               h.id.String(),
		VarKey:              h.key,
		VarHome:             h.homeDir,
		VarBase:             h.baseDir,
		VarPort:             strconv.Itoa(h.port),
		VarShutdownPort:     strconv.Itoa(ct.ShutdownPort),
		VarAJPPort:          strconv.Itoa(ct.AJPPort),
		VarLogFile:          h.logFile,
		VarContext:          ct.Context,
		VarDeployable:       h.DeployedPath(),
		VarSystemProperties: SystemPropertyArgs(h.sysProps),
	}
	for k, v := range h.sysProps {
		vars[VarSyspropPrefix+k] = v
	}
	return props.Merge(m.lookup, vars)
}

// SystemPropertyArgs renders properties as sorted -Dkey=value arguments.
func SystemPropertyArgs(p props.Table) string {
	args := make([]string, 0, len(p))
	for _, k := range p.Keys() {
		args = append(args, "-D"+k+"="+p[k])
	}
	return strings.Join(args, " ")
}

// render copies the template files from home to base through the substitution engine
// and applies the replacements.
func (m *Manager) render(h *Handle, vars props.Table) error {
	replaced := map[string][]config.Replacement{}
	files := slices.Clone(h.runtime.Templates)
	for _, r := range h.runtime.Replacements {
		if _, ok := replaced[r.File]; !ok && !slices.Contains(files, r.File) {
			files = append(files, r.File)
		}
		replaced[r.File] = append(replaced[r.File], r)
	}

	for _, rel := range files {
		src := filepath.Join(h.homeDir, filepath.FromSlash(rel))
		info, err := os.Stat(src)
		if errors.Is(err, fs.ErrNotExist) && len(replaced[rel]) == 0 {
			h.logger.Debug("Template not present in runtime, skipping", "file", rel)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read template %s: %w", rel, err)
		}
		data, err := os.ReadFile(src)
		if err != nil {
			return fmt.Errorf("failed to read template %s: %w", rel, err)
		}

		content := interpolation.ExpandString(string(data), vars)
		for _, r := range replaced[rel] {
			content = strings.ReplaceAll(content, r.Old, interpolation.ExpandString(r.New, vars))
		}

		dest := filepath.Join(h.baseDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", filepath.Dir(dest), err)
		}
		if err := os.WriteFile(dest, []byte(content), info.Mode().Perm()); err != nil {
			return fmt.Errorf("failed to write %s: %w", dest, err)
		}
		h.logger.Debug("Rendered template", "file", rel)
	}
	return nil
}

func copyFile(src, dest string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	_, err = io.Copy(out, in)
	return err
}
