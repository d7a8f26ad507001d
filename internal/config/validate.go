package config

import (
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
)

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	if c.Version == "" {
		c.Version = VersionUnknown
	}
	if c.Version != VersionLatest {
		return fmt.Errorf("%w: %s", ErrUnsupportedConfigVer, c.Version)
	}

	var errz []error
	if err := c.Logging.Validate(); err != nil {
		errz = append(errz, err)
	}
	if strings.TrimSpace(c.Session.Dir) == "" {
		errz = append(errz, errors.New("session dir is empty"))
	}
	if strings.TrimSpace(c.Repositories.Local) == "" {
		errz = append(errz, errors.New("local repository is empty"))
	}

	remoteIDs := map[string]bool{}
	for i, r := range c.Repositories.Remote {
		switch {
		case r.ID == "":
			errz = append(errz, fmt.Errorf("remote repository %d has an empty ID", i))
		case remoteIDs[r.ID]:
			errz = append(errz, fmt.Errorf("duplicate remote repository ID: %s", r.ID))
		}
		remoteIDs[r.ID] = true
		if !strings.HasPrefix(r.URL, "http://") && !strings.HasPrefix(r.URL, "https://") {
			errz = append(errz, fmt.Errorf("remote repository '%s' needs an http(s) URL", r.ID))
		}
	}

	errz = append(errz, c.Container.validate()...)

	if _, ok := c.Runtimes[c.Container.ID]; !ok {
		errz = append(errz, fmt.Errorf("%w: container id '%s'", ErrUnknownRuntime, c.Container.ID))
	}
	ids := make([]string, 0, len(c.Runtimes))
	for id := range c.Runtimes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		rt := c.Runtimes[id]
		for _, err := range rt.validate() {
			errz = append(errz, fmt.Errorf("runtime '%s': %w", id, err))
		}
	}

	return errors.Join(errz...)
}

func (ct ContainerConfig) validate() []error {
	var errz []error
	if ct.ID == "" {
		errz = append(errz, errors.New("container id is empty"))
	}
	ports := map[string]int{"port": ct.Port, "shutdown_port": ct.ShutdownPort, "ajp_port": ct.AJPPort}
	seen := map[int]string{}
	for _, name := range []string{"port", "shutdown_port", "ajp_port"} {
		p := ports[name]
		if p < 1 || p > 65535 {
			errz = append(errz, fmt.Errorf("container %s %d is out of range", name, p))
			continue
		}
		if other, dup := seen[p]; dup {
			errz = append(errz, fmt.Errorf("container %s %d clashes with %s", name, p, other))
		}
		seen[p] = name
	}
	if ct.Context == "" || strings.ContainsAny(ct.Context, `/\ `) {
		errz = append(errz, fmt.Errorf("container context '%s' must be a single path segment", ct.Context))
	}
	if ct.HomeProperty == "" {
		errz = append(errz, errors.New("container home_property is empty"))
	}
	return errz
}

func (rt RuntimeConfig) validate() []error {
	var errz []error
	if rt.Archive == "" {
		errz = append(errz, errors.New("archive is empty"))
	}
	if len(rt.Command) == 0 || rt.Command[0] == "" {
		errz = append(errz, errors.New("command is empty"))
	}
	if rt.DeployableType == "" {
		errz = append(errz, errors.New("deployable_type is empty"))
	}
	if rt.StartTimeout < 0 || rt.StopTimeout < 0 {
		errz = append(errz, errors.New("timeouts must not be negative"))
	}
	rel := append(append(append([]string{rt.DeployDir}, rt.BaseDirs...), rt.Templates...), rt.Executables...)
	for _, r := range rt.Replacements {
		rel = append(rel, r.File)
		if r.Old == "" {
			errz = append(errz, fmt.Errorf("replacement in '%s' has an empty old value", r.File))
		}
	}
	for _, p := range rel {
		if !isRelative(p) {
			errz = append(errz, fmt.Errorf("path '%s' must stay inside the runtime directory", p))
		}
	}
	return errz
}

// isRelative accepts slash-separated paths that do not climb out of their root.
func isRelative(p string) bool {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, `\`) {
		return false
	}
	clean := path.Clean(p)
	return clean != ".." && !strings.HasPrefix(clean, "../")
}
