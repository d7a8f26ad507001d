package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/atlanticdynamic/cargolynx/internal/interpolation"
	"github.com/atlanticdynamic/cargolynx/internal/props"
)

// Defaults for the configuration surface.
const (
	DefaultBuildDir          = "target"
	DefaultSessionDir        = "${project.build.directory}/cargolynx"
	DefaultLocalRepository   = "${user.home}/.m2/repository"
	DefaultHomeArchive       = "org.fcrepo:fcrepo-installer:zip:fedora-home:${fcrepo.version}"
	DefaultHomeDir           = "${project.build.directory}/fedora-home"
	DefaultInstallProperties = "${project.build.directory}/test-classes/install.properties"
	DefaultRuntimeID         = "tomcat7x"
	DefaultPort              = 8080
	DefaultShutdownPort      = 8005
	DefaultAJPPort           = 8009
	DefaultLogFile           = "${project.build.directory}/container.log"
	DefaultAppArchive        = "org.fcrepo:fcrepo-webapp-fedora:war:${fcrepo.version}"
	DefaultContext           = "fedora"
	DefaultHomeProperty      = "fedora.home"
	DefaultFcrepoVersion     = "3.6.1-SNAPSHOT"
	DefaultDeployableType    = "war"
	DefaultDeployDir         = "webapps"
	DefaultStartTimeout      = 2 * time.Minute
	DefaultStopTimeout       = 30 * time.Second
)

// Tomcat7x is the built-in runtime variant.
func Tomcat7x() RuntimeConfig {
	return RuntimeConfig{
		Archive: "https://archive.apache.org/dist/tomcat/tomcat-7/v7.0.29/bin/apache-tomcat-7.0.29.zip",
		Command: []string{"${runtime.home}/bin/catalina.sh", "run"},
		Env: map[string]string{
			"CATALINA_HOME": "${runtime.home}",
			"CATALINA_BASE": "${runtime.base}",
			"JAVA_OPTS":     "${runtime.system.properties}",
		},
		DeployDir: DefaultDeployDir,
		BaseDirs:  []string{"conf", "logs", "temp", "webapps", "work"},
		Templates: []string{
			"conf/catalina.policy",
			"conf/catalina.properties",
			"conf/context.xml",
			"conf/logging.properties",
			"conf/server.xml",
			"conf/tomcat-users.xml",
			"conf/web.xml",
		},
		Replacements: []Replacement{
			{File: "conf/server.xml", Old: `port="8080"`, New: `port="${runtime.port}"`},
			{File: "conf/server.xml", Old: `port="8005"`, New: `port="${runtime.shutdown.port}"`},
			{File: "conf/server.xml", Old: `port="8009"`, New: `port="${runtime.ajp.port}"`},
		},
		Executables:    []string{"bin/*.sh"},
		DeployableType: DefaultDeployableType,
		WaitForPort:    true,
		StartTimeout:   Duration(DefaultStartTimeout),
		StopTimeout:    Duration(DefaultStopTimeout),
	}
}

// BuiltinRuntimes returns the runtime variants available without configuration.
func BuiltinRuntimes() map[string]RuntimeConfig {
	return map[string]RuntimeConfig{
		DefaultRuntimeID: Tomcat7x(),
	}
}

// NewDefault returns a configuration with every default applied.
func NewDefault() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Version == "" {
		c.Version = VersionLatest
	}
	setDefault(&c.Logging.Format, LogFormatText)
	setDefault(&c.Logging.Level, LogLevelInfo)
	setDefault(&c.Session.Dir, DefaultSessionDir)
	setDefault(&c.Repositories.Local, DefaultLocalRepository)
	setDefault(&c.Project.BuildDir, DefaultBuildDir)
	setDefault(&c.Home.Archive, DefaultHomeArchive)
	setDefault(&c.Home.Dir, DefaultHomeDir)
	setDefault(&c.Home.InstallProperties, DefaultInstallProperties)

	ct := &c.Container
	setDefault(&ct.ID, DefaultRuntimeID)
	setDefault(&ct.Port, DefaultPort)
	setDefault(&ct.ShutdownPort, DefaultShutdownPort)
	setDefault(&ct.AJPPort, DefaultAJPPort)
	setDefault(&ct.LogFile, DefaultLogFile)
	setDefault(&ct.AppArchive, DefaultAppArchive)
	setDefault(&ct.Context, DefaultContext)
	setDefault(&ct.HomeProperty, DefaultHomeProperty)

	if c.Variables == nil {
		c.Variables = map[string]string{}
	}
	if _, ok := c.Variables["fcrepo.version"]; !ok {
		c.Variables["fcrepo.version"] = DefaultFcrepoVersion
	}

	if c.Runtimes == nil {
		c.Runtimes = map[string]RuntimeConfig{}
	}
	for id, builtin := range BuiltinRuntimes() {
		rt, ok := c.Runtimes[id]
		if !ok {
			c.Runtimes[id] = builtin
			continue
		}
		c.Runtimes[id] = rt.withDefaults(builtin)
	}
	for id, rt := range c.Runtimes {
		c.Runtimes[id] = rt.withDefaults(RuntimeConfig{
			DeployDir:      DefaultDeployDir,
			DeployableType: DefaultDeployableType,
			StartTimeout:   Duration(DefaultStartTimeout),
			StopTimeout:    Duration(DefaultStopTimeout),
		})
	}
}

// withDefaults fills the empty fields of rt from def.
func (rt RuntimeConfig) withDefaults(def RuntimeConfig) RuntimeConfig {
	setDefault(&rt.Archive, def.Archive)
	if len(rt.Command) == 0 {
		rt.Command = def.Command
	}
	if rt.Env == nil {
		rt.Env = def.Env
	}
	setDefault(&rt.DeployDir, def.DeployDir)
	if rt.BaseDirs == nil {
		rt.BaseDirs = def.BaseDirs
	}
	if rt.Templates == nil {
		rt.Templates = def.Templates
	}
	if rt.Replacements == nil {
		rt.Replacements = def.Replacements
	}
	if rt.Executables == nil {
		rt.Executables = def.Executables
	}
	setDefault(&rt.DeployableType, def.DeployableType)
	setDefault(&rt.StartTimeout, def.StartTimeout)
	setDefault(&rt.StopTimeout, def.StopTimeout)
	return rt
}

func setDefault[T comparable](field *T, def T) {
	var zero T
	if *field == zero {
		*field = def
	}
}

// Lookup builds the variable table that ${...} tokens resolve against: built-in
// variables, then [variables], then session variables and defines in order.
func (c *Config) Lookup(layers ...props.Table) props.Table {
	builtins := props.Table{
		"project.build.directory": absPath(c.Project.BuildDir),
		"project.packaging":       c.Project.Packaging,
		"session.dir":             c.Session.Dir,
		"fedora.home":             c.Home.Dir,
		"container.id":            c.Container.ID,
	}
	if home, err := os.UserHomeDir(); err == nil {
		builtins["user.home"] = home
	}
	all := append([]props.Table{builtins, c.Variables}, layers...)
	return props.Merge(all...)
}

// absPath makes p absolute unless it still holds tokens; those are resolved first.
func absPath(p string) string {
	if p == "" || interpolation.ContainsToken(p) {
		return p
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}
