// Package interpolation resolves "${name}" template tokens in property values.
//
// A token is replaced by the value found in the lookup table, or failing that in the
// process environment. Replacement text is scanned again, so values may refer to
// further tokens. Tokens that cannot be resolved, and a trailing "${" with no closing
// brace, are kept as literal text rather than reported as errors.
package interpolation

import (
	"os"
	"strings"

	"github.com/atlanticdynamic/cargolynx/internal/props"
)

const (
	tokenOpen  = "${"
	tokenClose = "}"
)

// EnvLookupFunc looks up a name in a process-wide variable store.
type EnvLookupFunc func(name string) (string, bool)

type options struct {
	env        EnvLookupFunc
	chainGuard bool
}

// Option configures Resolve and ExpandString.
type Option func(*options)

// WithEnv replaces the environment fallback, which defaults to os.LookupEnv.
// A nil function disables the fallback.
func WithEnv(fn EnvLookupFunc) Option {
	return func(o *options) {
		o.env = fn
	}
}

// WithNarrowCycleGuard disables reference-chain tracking. Only a value equal to the
// outer key is treated as a self reference; longer cycles such as a -> b -> a are
// re-scanned forever. Use only on trusted input that must match the legacy behavior.
func WithNarrowCycleGuard() Option {
	return func(o *options) {
		o.chainGuard = false
	}
}

func newOptions(opts []Option) *options {
	o := &options{env: os.LookupEnv, chainGuard: true}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) lookup(name string, table props.Table) (string, bool) {
	if v, ok := table[name]; ok {
		return v, true
	}
	if o.env != nil {
		return o.env(name)
	}
	return "", false
}

// Resolve substitutes every token in the values of source and returns a new table with
// the same keys. Neither input is modified.
func Resolve(source, lookup props.Table, opts ...Option) props.Table {
	o := newOptions(opts)
	out := make(props.Table, len(source))
	for k, v := range source {
		out[k] = o.expand(k, true, v, lookup)
	}
	return out
}

// ExpandString substitutes tokens in a single value. There is no outer key, so the
// self-reference rule only applies through the reference chain.
func ExpandString(value string, lookup props.Table, opts ...Option) string {
	return newOptions(opts).expand("", false, value, lookup)
}

// ContainsToken reports whether s still holds a complete "${...}" token.
func ContainsToken(s string) bool {
	open := strings.Index(s, tokenOpen)
	if open < 0 {
		return false
	}
	return strings.Contains(s[open+len(tokenOpen):], tokenClose)
}

// region marks text spliced in for a reference; end is exclusive.
type region struct {
	end  int
	name string
}

func (o *options) expand(key string, hasKey bool, value string, lookup props.Table) string {
	var out strings.Builder
	s := value
	pos := 0
	var chain []region

	for {
		rel := strings.Index(s[pos:], tokenOpen)
		if rel < 0 {
			out.WriteString(s[pos:])
			return out.String()
		}
		open := pos + rel
		nameStart := open + len(tokenOpen)
		closeRel := strings.Index(s[nameStart:], tokenClose)
		if closeRel < 0 {
			// unterminated: the rest is literal
			out.WriteString(s[pos:])
			return out.String()
		}
		closeIdx := nameStart + closeRel
		name := s[nameStart:closeIdx]
		tokenEnd := closeIdx + len(tokenClose)

		out.WriteString(s[pos:open])

		for len(chain) > 0 && chain[len(chain)-1].end <= open {
			chain = chain[:len(chain)-1]
		}

		nv, ok := o.lookup(name, lookup)
		if !ok || (hasKey && nv == key) || (o.chainGuard && inChain(chain, name)) {
			out.WriteString(s[open:tokenEnd])
			pos = tokenEnd
			continue
		}

		delta := len(nv) - (tokenEnd - open)
		for i := range chain {
			if chain[i].end < tokenEnd {
				chain[i].end = open + len(nv)
			} else {
				chain[i].end += delta
			}
		}
		chain = append(chain, region{end: open + len(nv), name: name})

		s = s[:open] + nv + s[tokenEnd:]
		pos = open
	}
}

func inChain(chain []region, name string) bool {
	for _, r := range chain {
		if r.name == name {
			return true
		}
	}
	return false
}
