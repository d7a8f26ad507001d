package container

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/atlanticdynamic/cargolynx/internal/archive"
	"github.com/atlanticdynamic/cargolynx/internal/artifact"
	"github.com/atlanticdynamic/cargolynx/internal/config"
	"github.com/atlanticdynamic/cargolynx/internal/session"
	"github.com/atlanticdynamic/cargolynx/internal/testutil"
	"github.com/stretchr/testify/require"
)

const (
	fakeRuntime   = "fake"
	helperEnv     = "CARGOLYNX_HELPER_PROCESS"
	runtimeFolder = "fake-runtime-1.0"
)

type countingResolver struct {
	Resolver
	calls atomic.Int32
}

func (r *countingResolver) Resolve(ctx context.Context, ref string) (artifact.Result, error) {
	r.calls.Add(1)
	return r.Resolver.Resolve(ctx, ref)
}

type fixture struct {
	t        *testing.T
	dir      string
	cfg      *config.Config
	resolver *countingResolver
	port     int
	war      string
}

// newFixture lays out a fake runtime archive and an application archive. mode selects
// what the runtime process does when started: serve, exit or stubborn.
func newFixture(t *testing.T, mode string) *fixture {
	t.Helper()
	dir := t.TempDir()

	zipPath := testutil.WriteZip(t, filepath.Join(dir, "dist", "fake-runtime-1.0.zip"), map[string]string{
		runtimeFolder + "/bin/run.sh":              "#!/bin/sh\n",
		runtimeFolder + "/conf/server.conf":        "port=8080\nbase=${runtime.base}\nhome=${catalina.home}\n",
		runtimeFolder + "/conf/context.properties": "context=${runtime.context}\nrepo=${fcrepo.version}\n",
	})
	war := filepath.Join(dir, "dist", "app.war")
	require.NoError(t, os.WriteFile(war, []byte("war-bytes"), 0o644))

	port := testutil.GetRandomPort(t)
	cfg := config.NewDefault()
	cfg.Project.BuildDir = filepath.Join(dir, "target")
	cfg.Home.Dir = filepath.Join(dir, "target", "fedora-home")
	cfg.Container.ID = fakeRuntime
	cfg.Container.Port = port
	cfg.Container.LogFile = filepath.Join(dir, "target", "container.log")
	cfg.Container.AppArchive = war
	cfg.Container.SystemProperties = map[string]string{"a.b": "c"}
	cfg.Runtimes[fakeRuntime] = config.RuntimeConfig{
		Archive: zipPath,
		Command: []string{os.Args[0], "-test.run=^TestHelperProcess$", "--", mode, "${runtime.port}", "${runtime.base}"},
		Env: map[string]string{
			helperEnv:   "1",
			"JAVA_OPTS": "${runtime.system.properties}",
		},
		DeployDir:      "webapps",
		BaseDirs:       []string{"conf", "logs", "webapps"},
		Templates:      []string{"conf/server.conf", "conf/context.properties", "conf/missing.xml"},
		Replacements:   []config.Replacement{{File: "conf/server.conf", Old: "port=8080", New: "port=${runtime.port}"}},
		Executables:    []string{"bin/*.sh"},
		DeployableType: "war",
		WaitForPort:    true,
		StartTimeout:   config.Duration(10 * time.Second),
		StopTimeout:    config.Duration(5 * time.Second),
	}

	resolver := artifact.NewResolver(
		filepath.Join(dir, "m2"),
		artifact.WithoutThirdPartyRepository(),
		artifact.WithDownloadDir(filepath.Join(dir, "downloads")),
	)
	return &fixture{
		t:        t,
		dir:      dir,
		cfg:      cfg,
		resolver: &countingResolver{Resolver: resolver},
		port:     port,
		war:      war,
	}
}

func (f *fixture) sessionDir() string {
	return filepath.Join(f.dir, "session")
}

func (f *fixture) openSession() *session.Session {
	f.t.Helper()
	sess, err := session.Open(f.sessionDir(), session.WithLogHandler(discardHandler()))
	require.NoError(f.t, err)
	return sess
}

func (f *fixture) manager(sess *session.Session, opts ...Option) *Manager {
	f.t.Helper()
	opts = append([]Option{
		WithLogHandler(discardHandler()),
		WithPortPollInterval(20 * time.Millisecond),
	}, opts...)
	m, err := NewManager(Options{
		Session:   sess,
		Config:    f.cfg,
		Resolver:  f.resolver,
		Extractor: archive.NewExtractor(),
	}, opts...)
	require.NoError(f.t, err)
	return m
}

func discardHandler() slog.Handler {
	return slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug})
}
