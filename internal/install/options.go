// Package install turns resolved install properties into a validated option set and
// writes the service configuration that option set describes into a home directory.
package install

import (
	"strconv"

	"github.com/atlanticdynamic/cargolynx/internal/props"
)

// Recognised property keys.
const (
	KeyHomeDir          = "home.dir"
	KeyServerHost       = "server.host"
	KeyServerContext    = "server.context"
	KeyAdminPassword    = "admin.password"
	KeyHTTPPort         = "http.port"
	KeyShutdownPort     = "shutdown.port"
	KeySSLEnabled       = "ssl.enabled"
	KeySSLPort          = "ssl.port"
	KeyAuthRequired     = "auth.required"
	KeyDatabaseType     = "database.type"
	KeyDatabaseURL      = "database.url"
	KeyDatabaseUsername = "database.username"
	KeyDatabasePassword = "database.password"
	KeyDatabaseDriver   = "database.driver"
	KeyResourceIndex    = "module.resourceindex.enabled"
	KeyMessaging        = "module.messaging.enabled"
	KeyMessagingURI     = "messaging.uri"
	KeyXACML            = "module.xacml.enabled"
)

// Defaults for optional keys.
const (
	DefaultServerContext = "fedora"
	DefaultHTTPPort      = 8080
	DefaultShutdownPort  = 8005
	DefaultSSLPort       = 8443
)

// DatabaseType selects the storage backend the service is configured for.
type DatabaseType string

const (
	DatabaseEmbedded   DatabaseType = "embedded"
	DatabaseMySQL      DatabaseType = "mysql"
	DatabasePostgreSQL DatabaseType = "postgresql"
	DatabaseOracle     DatabaseType = "oracle"
)

// Database holds connection settings. They are empty for the embedded database.
type Database struct {
	Type     DatabaseType
	URL      string
	Username string
	Password string
	Driver   string
}

// Embedded reports whether the service manages its own database.
func (d Database) Embedded() bool {
	return d.Type == DatabaseEmbedded
}

// Modules lists the optional service modules.
type Modules struct {
	ResourceIndex bool
	Messaging     bool
	XACML         bool
}

// Enabled returns the names of enabled modules in a fixed order.
func (m Modules) Enabled() []string {
	var out []string
	if m.ResourceIndex {
		out = append(out, ModuleResourceIndex)
	}
	if m.Messaging {
		out = append(out, ModuleMessaging)
	}
	if m.XACML {
		out = append(out, ModuleXACML)
	}
	return out
}

// Module names as used for file names under config/modules.
const (
	ModuleResourceIndex = "resourceindex"
	ModuleMessaging     = "messaging"
	ModuleXACML         = "xacml"
)

// AllModules is every known module name.
var AllModules = []string{ModuleResourceIndex, ModuleMessaging, ModuleXACML}

// Options is the validated, typed view of an install property table. A value of this
// type only comes out of NewOptions, so every field is present and well formed.
type Options struct {
	HomeDir       string
	ServerHost    string
	ServerContext string
	AdminPassword string

	HTTPPort     int
	ShutdownPort int
	SSLEnabled   bool
	SSLPort      int

	AuthRequired bool
	Database     Database
	Modules      Modules
	MessagingURI string

	// Extra holds unrecognised keys, passed through unchanged.
	Extra props.Table
}

// Table renders the options back to normalized property form.
func (o *Options) Table() props.Table {
	t := o.Extra.Clone()
	t[KeyHomeDir] = o.HomeDir
	t[KeyServerHost] = o.ServerHost
	t[KeyServerContext] = o.ServerContext
	t[KeyAdminPassword] = o.AdminPassword
	t[KeyHTTPPort] = strconv.Itoa(o.HTTPPort)
	t[KeyShutdownPort] = strconv.Itoa(o.ShutdownPort)
	t[KeySSLEnabled] = strconv.FormatBool(o.SSLEnabled)
	t[KeySSLPort] = strconv.Itoa(o.SSLPort)
	t[KeyAuthRequired] = strconv.FormatBool(o.AuthRequired)
	t[KeyDatabaseType] = string(o.Database.Type)
	if !o.Database.Embedded() {
		t[KeyDatabaseURL] = o.Database.URL
		t[KeyDatabaseUsername] = o.Database.Username
		t[KeyDatabasePassword] = o.Database.Password
		t[KeyDatabaseDriver] = o.Database.Driver
	}
	t[KeyResourceIndex] = strconv.FormatBool(o.Modules.ResourceIndex)
	t[KeyMessaging] = strconv.FormatBool(o.Modules.Messaging)
	if o.Modules.Messaging {
		t[KeyMessagingURI] = o.MessagingURI
	}
	t[KeyXACML] = strconv.FormatBool(o.Modules.XACML)
	return t
}
