// Package config holds the tool configuration: where the session lives, which repositories
// to resolve from, how to prepare the service home and which runtime to provision.
package config

import (
	"github.com/atlanticdynamic/cargolynx/internal/artifact"
)

const (
	VersionLatest  = "v1"
	VersionUnknown = "unknown"
)

// Config is the root of a configuration file.
type Config struct {
	Version      string                   `toml:"version"      yaml:"version"`
	Logging      LoggingConfig            `toml:"logging"      yaml:"logging"`
	Session      SessionConfig            `toml:"session"      yaml:"session"      interpolate:"yes"`
	Variables    map[string]string        `toml:"variables"    yaml:"variables"`
	Repositories RepositoriesConfig       `toml:"repositories" yaml:"repositories" interpolate:"yes"`
	Project      ProjectConfig            `toml:"project"      yaml:"project"      interpolate:"yes"`
	Home         HomeConfig               `toml:"home"         yaml:"home"         interpolate:"yes"`
	Container    ContainerConfig          `toml:"container"    yaml:"container"    interpolate:"yes"`
	Runtimes     map[string]RuntimeConfig `toml:"runtimes"     yaml:"runtimes"     interpolate:"yes"`
}

// SessionConfig locates the session directory shared by every invocation of one build.
type SessionConfig struct {
	Dir string `toml:"dir" yaml:"dir" interpolate:"yes"`
}

// RepositoriesConfig lists where artifacts come from.
type RepositoriesConfig struct {
	Local             string                `toml:"local"               yaml:"local"               interpolate:"yes"`
	Remote            []artifact.Repository `toml:"remote"              yaml:"remote"`
	DisableThirdParty bool                  `toml:"disable_third_party" yaml:"disable_third_party"`
}

// ProjectConfig describes the build that invokes the tool.
type ProjectConfig struct {
	BuildDir  string `toml:"build_dir" yaml:"build_dir" interpolate:"yes"`
	Packaging string `toml:"packaging" yaml:"packaging" interpolate:"yes"`
	Artifact  string `toml:"artifact"  yaml:"artifact"  interpolate:"yes"`
}

// HomeConfig controls preparation of the service home directory.
type HomeConfig struct {
	Archive           string `toml:"archive"            yaml:"archive"            interpolate:"yes"`
	Dir               string `toml:"dir"                yaml:"dir"                interpolate:"yes"`
	InstallProperties string `toml:"install_properties" yaml:"install_properties" interpolate:"yes"`
}

// ContainerConfig selects and parameterises the runtime instance.
type ContainerConfig struct {
	ID               string            `toml:"id"                yaml:"id"                interpolate:"yes"`
	Port             int               `toml:"port"              yaml:"port"`
	ShutdownPort     int               `toml:"shutdown_port"     yaml:"shutdown_port"`
	AJPPort          int               `toml:"ajp_port"          yaml:"ajp_port"`
	HomeDir          string            `toml:"home_dir"          yaml:"home_dir"          interpolate:"yes"`
	LogFile          string            `toml:"log_file"          yaml:"log_file"          interpolate:"yes"`
	SystemProperties map[string]string `toml:"system_properties" yaml:"system_properties" interpolate:"yes"`
	AppArchive       string            `toml:"app_archive"       yaml:"app_archive"       interpolate:"yes"`
	Context          string            `toml:"context"           yaml:"context"           interpolate:"yes"`
	HomeProperty     string            `toml:"home_property"     yaml:"home_property"`
}

// RuntimeConfig describes one runtime variant. Command, Env, Replacements and template
// contents are expanded at provisioning time, when the runtime.* variables are known.
type RuntimeConfig struct {
	Archive        string            `toml:"archive"         yaml:"archive"         interpolate:"yes"`
	Command        []string          `toml:"command"         yaml:"command"`
	Env            map[string]string `toml:"env"             yaml:"env"`
	DeployDir      string            `toml:"deploy_dir"      yaml:"deploy_dir"`
	BaseDirs       []string          `toml:"base_dirs"       yaml:"base_dirs"`
	Templates      []string          `toml:"templates"       yaml:"templates"`
	Replacements   []Replacement     `toml:"replacements"    yaml:"replacements"`
	Executables    []string          `toml:"executables"     yaml:"executables"`
	DeployableType string            `toml:"deployable_type" yaml:"deployable_type"`
	WaitForPort    bool              `toml:"wait_for_port"   yaml:"wait_for_port"`
	StartTimeout   Duration          `toml:"start_timeout"   yaml:"start_timeout"`
	StopTimeout    Duration          `toml:"stop_timeout"    yaml:"stop_timeout"`
}

// Replacement rewrites Old to New in a rendered base file. New is expanded first.
type Replacement struct {
	File string `toml:"file" yaml:"file"`
	Old  string `toml:"old"  yaml:"old"`
	New  string `toml:"new"  yaml:"new"`
}

// Runtime returns the variant selected by Container.ID.
func (c *Config) Runtime() (string, RuntimeConfig, bool) {
	rt, ok := c.Runtimes[c.Container.ID]
	return c.Container.ID, rt, ok
}
