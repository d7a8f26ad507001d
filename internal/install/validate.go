package install

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/atlanticdynamic/cargolynx/internal/interpolation"
	"github.com/atlanticdynamic/cargolynx/internal/props"
)

var contextPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

var knownKeys = []string{
	KeyHomeDir, KeyServerHost, KeyServerContext, KeyAdminPassword,
	KeyHTTPPort, KeyShutdownPort, KeySSLEnabled, KeySSLPort, KeyAuthRequired,
	KeyDatabaseType, KeyDatabaseURL, KeyDatabaseUsername, KeyDatabasePassword, KeyDatabaseDriver,
	KeyResourceIndex, KeyMessaging, KeyMessagingURI, KeyXACML,
}

// NewOptions validates a resolved property table. It performs no I/O. All problems are
// reported together; each one is a *ValidationError matching ErrValidation.
func NewOptions(table props.Table) (*Options, error) {
	p := &parser{table: table}

	for _, k := range table.Keys() {
		if v := table[k]; interpolation.ContainsToken(v) {
			p.fail(malformed(k, v, "unresolved reference"))
		}
	}

	opts := &Options{
		HomeDir:       p.path(KeyHomeDir),
		ServerHost:    p.host(KeyServerHost),
		ServerContext: p.context(KeyServerContext, DefaultServerContext),
		AdminPassword: p.required(KeyAdminPassword),
		HTTPPort:      p.port(KeyHTTPPort, DefaultHTTPPort),
		ShutdownPort:  p.port(KeyShutdownPort, DefaultShutdownPort),
		SSLEnabled:    p.boolean(KeySSLEnabled, false),
		AuthRequired:  p.boolean(KeyAuthRequired, false),
		Modules: Modules{
			ResourceIndex: p.boolean(KeyResourceIndex, false),
			Messaging:     p.boolean(KeyMessaging, false),
			XACML:         p.boolean(KeyXACML, true),
		},
		Extra: props.Table{},
	}

	if opts.SSLEnabled {
		if _, ok := p.value(KeySSLPort); !ok {
			p.fail(missing(KeySSLPort))
		}
	}
	opts.SSLPort = p.port(KeySSLPort, DefaultSSLPort)

	if opts.HTTPPort != 0 && opts.HTTPPort == opts.ShutdownPort {
		p.fail(malformed(KeyShutdownPort, strconv.Itoa(opts.ShutdownPort), "must differ from "+KeyHTTPPort))
	}
	if opts.SSLEnabled && opts.SSLPort != 0 &&
		(opts.SSLPort == opts.HTTPPort || opts.SSLPort == opts.ShutdownPort) {
		p.fail(malformed(KeySSLPort, strconv.Itoa(opts.SSLPort), "must differ from the other ports"))
	}

	opts.Database = p.database()

	if opts.Modules.Messaging {
		opts.MessagingURI = p.uri(KeyMessagingURI)
	}

	for k, v := range table {
		if !slices.Contains(knownKeys, k) {
			opts.Extra[k] = v
		}
	}

	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	return opts, nil
}

type parser struct {
	table props.Table
	errs  []error
}

func (p *parser) fail(err error) {
	p.errs = append(p.errs, err)
}

// value returns the trimmed value; blank counts as absent.
func (p *parser) value(key string) (string, bool) {
	v, ok := p.table[key]
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (p *parser) required(key string) string {
	v, ok := p.value(key)
	if !ok {
		p.fail(missing(key))
	}
	return v
}

func (p *parser) path(key string) string {
	v := p.required(key)
	if v == "" {
		return ""
	}
	if !filepath.IsAbs(v) {
		p.fail(malformed(key, v, "must be an absolute path"))
		return ""
	}
	return filepath.Clean(v)
}

func (p *parser) host(key string) string {
	v := p.required(key)
	if v == "" {
		return ""
	}
	if strings.Contains(v, "://") || strings.ContainsAny(v, " \t/") {
		p.fail(malformed(key, v, "must be a bare host name or address"))
		return ""
	}
	return v
}

func (p *parser) context(key, def string) string {
	v, ok := p.value(key)
	if !ok {
		return def
	}
	if !contextPattern.MatchString(v) {
		p.fail(malformed(key, v, "must be a single path segment"))
		return ""
	}
	return v
}

func (p *parser) port(key string, def int) int {
	v, ok := p.value(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 65535 {
		p.fail(malformed(key, v, "must be a port number between 1 and 65535"))
		return 0
	}
	return n
}

func (p *parser) boolean(key string, def bool) bool {
	v, ok := p.value(key)
	if !ok {
		return def
	}
	b, err := ParseBool(v)
	if err != nil {
		p.fail(malformed(key, v, err.Error()))
		return def
	}
	return b
}

func (p *parser) uri(key string) string {
	v := p.required(key)
	if v == "" {
		return ""
	}
	u, err := url.Parse(v)
	if err != nil || u.Scheme == "" {
		p.fail(malformed(key, v, "must be an absolute URI"))
		return ""
	}
	return v
}

func (p *parser) database() Database {
	db := Database{Type: DatabaseEmbedded}
	if v, ok := p.value(KeyDatabaseType); ok {
		switch t := DatabaseType(strings.ToLower(v)); t {
		case DatabaseEmbedded, DatabaseMySQL, DatabasePostgreSQL, DatabaseOracle:
			db.Type = t
		default:
			p.fail(malformed(KeyDatabaseType, v, "unknown database type"))
			return db
		}
	}
	if db.Embedded() {
		return db
	}

	db.URL = p.required(KeyDatabaseURL)
	if db.URL != "" && !strings.HasPrefix(db.URL, "jdbc:") {
		p.fail(malformed(KeyDatabaseURL, db.URL, "must start with jdbc:"))
	}
	db.Username = p.required(KeyDatabaseUsername)
	db.Password = p.table[KeyDatabasePassword]
	db.Driver = p.required(KeyDatabaseDriver)
	return db
}

// ParseBool accepts true/false, yes/no, on/off and 1/0 in any case.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %q", s)
}
