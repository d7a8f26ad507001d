package interpolation_test

import (
	"path/filepath"
	"testing"

	"github.com/atlanticdynamic/cargolynx/internal/config"
	"github.com/atlanticdynamic/cargolynx/internal/install"
	"github.com/atlanticdynamic/cargolynx/internal/interpolation"
	"github.com/atlanticdynamic/cargolynx/internal/props"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const projectConfig = `
version = "v1"

[variables]
"fcrepo.version" = "3.8.0"
"server.name" = "${TEST_HOST}"

[project]
build_dir = "${CARGOLYNX_IT_BUILD}"

[container]
context = "${CARGOLYNX_IT_CONTEXT}"
`

func TestEndToEndInterpolation(t *testing.T) {
	buildDir := t.TempDir()
	t.Setenv("CARGOLYNX_IT_BUILD", buildDir)
	t.Setenv("CARGOLYNX_IT_CONTEXT", "repository")
	t.Setenv("TEST_HOST", "api.example.com")
	t.Setenv("ADMIN_SECRET", "from-env")

	t.Run("config fields from environment", func(t *testing.T) {
		cfg, err := config.NewConfigFromBytes([]byte(projectConfig), config.FormatTOML)
		require.NoError(t, err)

		lookup := cfg.Lookup()
		assert.Equal(t, "${CARGOLYNX_IT_BUILD}", lookup["project.build.directory"])

		require.NoError(t, cfg.Resolve(lookup))
		assert.Equal(t, buildDir, cfg.Project.BuildDir)
		assert.Equal(t, filepath.Join(buildDir, "cargolynx"), filepath.FromSlash(cfg.Session.Dir))
		assert.Equal(t, filepath.Join(buildDir, "fedora-home"), filepath.FromSlash(cfg.Home.Dir))
		assert.Equal(t, "repository", cfg.Container.Context)
		assert.Equal(t, "org.fcrepo:fcrepo-webapp-fedora:war:3.8.0", cfg.Container.AppArchive)
	})

	t.Run("install properties through config variables", func(t *testing.T) {
		cfg, err := config.NewConfigFromBytes([]byte(projectConfig), config.FormatTOML)
		require.NoError(t, err)

		source := props.Table{
			install.KeyHomeDir:       "${fedora.home}",
			install.KeyServerHost:    "${server.name}",
			install.KeyAdminPassword: "${ADMIN_SECRET}",
			install.KeyHTTPPort:      "${http.port}",
		}
		defines := props.Table{"http.port": "9090"}

		resolved := interpolation.Resolve(source, cfg.Lookup(defines))
		opts, err := install.NewOptions(resolved)
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(buildDir, "fedora-home"), filepath.FromSlash(opts.HomeDir))
		assert.Equal(t, "api.example.com", opts.ServerHost)
		assert.Equal(t, "from-env", opts.AdminPassword)
		assert.Equal(t, 9090, opts.HTTPPort)
	})

	t.Run("defines win over environment", func(t *testing.T) {
		lookup := props.Table{"TEST_HOST": "defined.example.com"}
		got := interpolation.ExpandString("${TEST_HOST}:${TEST_HOST}", lookup)
		assert.Equal(t, "defined.example.com:defined.example.com", got)
	})

	t.Run("disabled environment leaves tokens for the validator", func(t *testing.T) {
		source := props.Table{
			install.KeyHomeDir:       "/opt/fedora/home",
			install.KeyServerHost:    "${TEST_HOST}",
			install.KeyAdminPassword: "secret",
		}
		resolved := interpolation.Resolve(source, props.Table{}, interpolation.WithEnv(nil))
		assert.Equal(t, "${TEST_HOST}", resolved[install.KeyServerHost])

		_, err := install.NewOptions(resolved)
		require.ErrorIs(t, err, install.ErrValidation)
	})
}
