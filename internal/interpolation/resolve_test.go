package interpolation

import (
	"testing"

	"github.com/atlanticdynamic/cargolynx/internal/props"
	"github.com/stretchr/testify/assert"
)

// noEnv keeps tests independent of the host environment.
func noEnv(string) (string, bool) { return "", false }

func envOf(m map[string]string) EnvLookupFunc {
	return func(name string) (string, bool) {
		v, ok := m[name]
		return v, ok
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		source   props.Table
		lookup   props.Table
		env      map[string]string
		expected props.Table
	}{
		{
			name:     "empty source",
			source:   props.Table{},
			lookup:   props.Table{"b": "x"},
			expected: props.Table{},
		},
		{
			name:     "plain value",
			source:   props.Table{"a": "hello world"},
			expected: props.Table{"a": "hello world"},
		},
		{
			name:     "chained indirection",
			source:   props.Table{"a": "${b}"},
			lookup:   props.Table{"b": "x"},
			expected: props.Table{"a": "x"},
		},
		{
			name:     "self reference stays literal",
			source:   props.Table{"a": "${a}"},
			lookup:   props.Table{},
			expected: props.Table{"a": "${a}"},
		},
		{
			name:     "value equal to outer key stays literal",
			source:   props.Table{"a": "pre-${b}-post"},
			lookup:   props.Table{"b": "a"},
			expected: props.Table{"a": "pre-${b}-post"},
		},
		{
			name:     "unterminated token kept verbatim",
			source:   props.Table{"a": "prefix ${unterminated"},
			expected: props.Table{"a": "prefix ${unterminated"},
		},
		{
			name:     "unterminated after resolved token",
			source:   props.Table{"a": "${b}/${c"},
			lookup:   props.Table{"b": "x"},
			expected: props.Table{"a": "x/${c"},
		},
		{
			name:     "missing reference stays literal",
			source:   props.Table{"a": "${missing}"},
			expected: props.Table{"a": "${missing}"},
		},
		{
			name:     "environment fallback",
			source:   props.Table{"a": "${HOME_DIR}/data"},
			env:      map[string]string{"HOME_DIR": "/srv"},
			expected: props.Table{"a": "/srv/data"},
		},
		{
			name:     "lookup wins over environment",
			source:   props.Table{"a": "${x}"},
			lookup:   props.Table{"x": "table"},
			env:      map[string]string{"x": "env"},
			expected: props.Table{"a": "table"},
		},
		{
			name:   "multi level indirection",
			source: props.Table{"home.dir": "${build.dir}/home"},
			lookup: props.Table{
				"build.dir":   "${project.dir}/target",
				"project.dir": "/work",
			},
			expected: props.Table{"home.dir": "/work/target/home"},
		},
		{
			name:     "several tokens in one value",
			source:   props.Table{"url": "http://${host}:${port}/${ctx}"},
			lookup:   props.Table{"host": "localhost", "port": "8080", "ctx": "fedora"},
			expected: props.Table{"url": "http://localhost:8080/fedora"},
		},
		{
			name:     "token assembled from spliced value and remainder",
			source:   props.Table{"a": "${b}y}"},
			lookup:   props.Table{"b": "${x", "xy": "joined"},
			expected: props.Table{"a": "joined"},
		},
		{
			name:     "two key cycle terminates",
			source:   props.Table{"k": "${a}"},
			lookup:   props.Table{"a": "${b}", "b": "${a}"},
			expected: props.Table{"k": "${a}"},
		},
		{
			name:     "lookup self reference terminates",
			source:   props.Table{"k": "${a}"},
			lookup:   props.Table{"a": "x${a}"},
			expected: props.Table{"k": "x${a}"},
		},
		{
			name:     "same reference twice is not a cycle",
			source:   props.Table{"k": "${a}-${a}"},
			lookup:   props.Table{"a": "${b}", "b": "v"},
			expected: props.Table{"k": "v-v"},
		},
		{
			name:     "empty replacement",
			source:   props.Table{"k": "[${empty}]"},
			lookup:   props.Table{"empty": ""},
			expected: props.Table{"k": "[]"},
		},
		{
			name:     "empty name stays literal",
			source:   props.Table{"k": "${}"},
			expected: props.Table{"k": "${}"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Resolve(tt.source, tt.lookup, WithEnv(envOf(tt.env)))
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestResolve_DoesNotModifyInputs(t *testing.T) {
	t.Parallel()

	source := props.Table{"a": "${b}"}
	lookup := props.Table{"b": "x"}
	_ = Resolve(source, lookup, WithEnv(noEnv))

	assert.Equal(t, props.Table{"a": "${b}"}, source)
	assert.Equal(t, props.Table{"b": "x"}, lookup)
}

func TestResolve_Idempotent(t *testing.T) {
	t.Parallel()

	source := props.Table{
		"a": "${b}/x",
		"c": "literal",
		"d": "${missing}",
		"e": "tail ${open",
	}
	lookup := props.Table{"b": "/root"}

	once := Resolve(source, lookup, WithEnv(noEnv))
	twice := Resolve(once, lookup, WithEnv(noEnv))
	assert.Equal(t, once, twice)
}

func TestResolve_DefaultEnvironment(t *testing.T) {
	t.Setenv("CARGOLYNX_TEST_VALUE", "from-env")

	got := Resolve(props.Table{"a": "${CARGOLYNX_TEST_VALUE}"}, nil)
	assert.Equal(t, "from-env", got["a"])
}

func TestResolve_EnvDisabled(t *testing.T) {
	t.Setenv("CARGOLYNX_TEST_VALUE", "from-env")

	got := Resolve(props.Table{"a": "${CARGOLYNX_TEST_VALUE}"}, nil, WithEnv(nil))
	assert.Equal(t, "${CARGOLYNX_TEST_VALUE}", got["a"])
}

func TestResolve_NarrowCycleGuard(t *testing.T) {
	t.Parallel()

	// Chains without cycles behave the same under both policies.
	source := props.Table{"a": "${b}", "self": "${self}"}
	lookup := props.Table{"b": "${c}", "c": "v"}
	got := Resolve(source, lookup, WithEnv(noEnv), WithNarrowCycleGuard())
	assert.Equal(t, props.Table{"a": "v", "self": "${self}"}, got)
}

func TestExpandString(t *testing.T) {
	t.Parallel()

	lookup := props.Table{"runtime.home": "/opt/rt", "bin": "${runtime.home}/bin"}
	assert.Equal(t, "/opt/rt/bin/run.sh", ExpandString("${bin}/run.sh", lookup, WithEnv(noEnv)))
	assert.Equal(t, "", ExpandString("", lookup, WithEnv(noEnv)))
	assert.Equal(t, "${nope}", ExpandString("${nope}", lookup, WithEnv(noEnv)))
}

func TestContainsToken(t *testing.T) {
	t.Parallel()

	assert.True(t, ContainsToken("${a}"))
	assert.True(t, ContainsToken("x ${a} y"))
	assert.False(t, ContainsToken("plain"))
	assert.False(t, ContainsToken("${unterminated"))
	assert.False(t, ContainsToken("} before ${"))
}
