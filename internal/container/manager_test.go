package container

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/atlanticdynamic/cargolynx/internal/config"
	"github.com/atlanticdynamic/cargolynx/internal/finitestate"
	"github.com/atlanticdynamic/cargolynx/internal/props"
	"github.com/atlanticdynamic/cargolynx/internal/session"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager_RequiresCollaborators(t *testing.T) {
	t.Parallel()
	_, err := NewManager(Options{})
	require.Error(t, err)
	for _, want := range []string{"session", "config", "resolver", "extractor"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestManager_Get(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "serve")
	sess := f.openSession()
	m := f.manager(sess)

	h, err := m.Get(t.Context(), fakeRuntime)
	require.NoError(t, err)
	assert.Equal(t, finitestate.StatusConfigured, h.GetState())
	assert.Equal(t, fakeRuntime, h.Key())
	assert.Equal(t, uuid.V6, h.ID().Version())

	t.Run("home follows the layout policy", func(t *testing.T) {
		assert.Equal(t, filepath.Join(sess.Dir(), "extracts", fakeRuntime, runtimeFolder), h.HomeDir())
		info, err := os.Stat(filepath.Join(h.HomeDir(), "bin", "run.sh"))
		require.NoError(t, err)
		assert.NotZero(t, info.Mode().Perm()&0o100, "scripts are executable")
	})

	t.Run("templates are rendered into base", func(t *testing.T) {
		assert.Equal(t, filepath.Join(sess.Dir(), "containers", fakeRuntime, "base"), h.BaseDir())

		server, err := os.ReadFile(filepath.Join(h.BaseDir(), "conf", "server.conf"))
		require.NoError(t, err)
		assert.Contains(t, string(server), "port="+strconv.Itoa(f.port)+"\n")
		assert.Contains(t, string(server), "base="+h.BaseDir()+"\n")
		assert.Contains(t, string(server), "home=${catalina.home}\n", "unknown tokens stay literal")

		ctxProps, err := os.ReadFile(filepath.Join(h.BaseDir(), "conf", "context.properties"))
		require.NoError(t, err)
		assert.Equal(t, "context=fedora\nrepo="+config.DefaultFcrepoVersion+"\n", string(ctxProps))

		assert.NoFileExists(t, filepath.Join(h.BaseDir(), "conf", "missing.xml"))
		assert.DirExists(t, filepath.Join(h.BaseDir(), "logs"))
	})

	t.Run("deployable is attached", func(t *testing.T) {
		d := h.Deployable()
		require.NotNil(t, d)
		assert.Equal(t, f.war, d.Path)
		assert.Equal(t, "fedora", d.Context)
		assert.Equal(t, filepath.Join(h.BaseDir(), "webapps", "fedora.war"), h.DeployedPath())
		data, err := os.ReadFile(h.DeployedPath())
		require.NoError(t, err)
		assert.Equal(t, "war-bytes", string(data))
	})

	t.Run("system properties include the home directory", func(t *testing.T) {
		assert.Equal(t, props.Table{
			"a.b":         "c",
			"fedora.home": f.cfg.Home.Dir,
		}, h.SystemProperties())
	})

	t.Run("provision log is written", func(t *testing.T) {
		data, err := os.ReadFile(m.ProvisionLog(fakeRuntime))
		require.NoError(t, err)
		assert.Contains(t, string(data), "Container provisioned")
	})

	t.Run("record is persisted", func(t *testing.T) {
		reopened, err := session.Open(sess.Dir())
		require.NoError(t, err)
		rec, ok := reopened.Registry().Restored(fakeRuntime)
		require.True(t, ok)
		assert.Equal(t, finitestate.StatusConfigured, rec.State)
		assert.Equal(t, h.ID().String(), rec.ID)
		assert.Equal(t, h.BaseDir(), rec.BaseDir)
		assert.Equal(t, f.port, rec.Port)
		require.NotNil(t, rec.Deployable)
		assert.Equal(t, "fedora", rec.Deployable.Context)
	})
}

func TestManager_Get_Identity(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "serve")
	m := f.manager(f.openSession())

	first, err := m.Get(t.Context(), fakeRuntime)
	require.NoError(t, err)
	calls := f.resolver.calls.Load()

	second, err := m.Get(t.Context(), fakeRuntime)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, calls, f.resolver.calls.Load(), "no second provisioning")

	found, ok := m.Find(fakeRuntime)
	require.True(t, ok)
	assert.Same(t, first, found)
}

func TestManager_Get_ProjectArtifact(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "serve")
	project := filepath.Join(f.dir, "target", "project.war")
	require.NoError(t, os.MkdirAll(filepath.Dir(project), 0o755))
	require.NoError(t, os.WriteFile(project, []byte("project-war"), 0o644))
	f.cfg.Project.Packaging = "war"
	f.cfg.Project.Artifact = project

	h, err := f.manager(f.openSession()).Get(t.Context(), fakeRuntime)
	require.NoError(t, err)
	require.NotNil(t, h.Deployable())
	assert.Equal(t, project, h.Deployable().Path)

	data, err := os.ReadFile(h.DeployedPath())
	require.NoError(t, err)
	assert.Equal(t, "project-war", string(data))
}

func TestManager_Get_HomePropertyKept(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "serve")
	f.cfg.Container.SystemProperties = map[string]string{"fedora.home": "/elsewhere"}

	h, err := f.manager(f.openSession()).Get(t.Context(), fakeRuntime)
	require.NoError(t, err)
	assert.Equal(t, "/elsewhere", h.SystemProperties()["fedora.home"])
}

func TestManager_Get_LayoutPolicy(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "serve")

	var seen string
	policy := func(root string) (string, error) {
		seen = root
		return filepath.Join(root, runtimeFolder), nil
	}
	sess := f.openSession()
	h, err := f.manager(sess, WithLayoutPolicy(policy)).Get(t.Context(), fakeRuntime)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(sess.Dir(), "extracts", fakeRuntime), seen)
	assert.Equal(t, filepath.Join(seen, runtimeFolder), h.HomeDir())
}

func TestManager_Get_FailureIsSticky(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "serve")
	rt := f.cfg.Runtimes[fakeRuntime]
	rt.Archive = filepath.Join(f.dir, "dist", "absent.zip")
	f.cfg.Runtimes[fakeRuntime] = rt

	sess := f.openSession()
	m := f.manager(sess)

	_, err := m.Get(t.Context(), fakeRuntime)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrProvisioningFailed)
	var perr *ProvisionError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, fakeRuntime, perr.Key)

	var buf bytes.Buffer
	require.NoError(t, perr.PlaybackLogs(slog.NewTextHandler(&buf, nil)))
	assert.Contains(t, buf.String(), "Provisioning failed")

	calls := f.resolver.calls.Load()
	_, again := m.Get(t.Context(), fakeRuntime)
	require.ErrorIs(t, again, ErrProvisioningFailed)
	assert.Equal(t, err.Error(), again.Error())
	assert.Equal(t, calls, f.resolver.calls.Load(), "failed keys are not retried")

	t.Run("across invocations", func(t *testing.T) {
		later := f.manager(f.openSession())
		_, err := later.Get(t.Context(), fakeRuntime)
		require.ErrorIs(t, err, ErrProvisioningFailed)
		assert.Equal(t, again.Error(), err.Error())
		assert.Equal(t, calls, f.resolver.calls.Load())

		records := later.Status()
		require.Len(t, records, 1)
		assert.True(t, records[0].Failed())
	})

	t.Run("until the session ends", func(t *testing.T) {
		ending := f.manager(f.openSession())
		require.NoError(t, ending.End(t.Context()))

		fresh := f.manager(f.openSession())
		_, err := fresh.Get(t.Context(), fakeRuntime)
		require.ErrorIs(t, err, ErrProvisioningFailed)
		assert.Equal(t, calls+1, f.resolver.calls.Load(), "a new session retries")
	})
}

func TestManager_Get_UnknownRuntime(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "serve")
	m := f.manager(f.openSession())

	_, err := m.Get(t.Context(), "weblogic")
	require.ErrorIs(t, err, ErrProvisioningFailed)
	require.ErrorIs(t, err, config.ErrUnknownRuntime)
	assert.Zero(t, f.resolver.calls.Load())
}

func TestManager_Get_Canceled(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "serve")
	m := f.manager(f.openSession())

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := m.Get(ctx, fakeRuntime)
	require.ErrorIs(t, err, ErrProvisioningFailed)
	require.ErrorIs(t, err, context.Canceled)
}

func TestManager_Start_InvalidState(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "serve")
	m := f.manager(f.openSession())

	for _, state := range []string{finitestate.StatusUninstalled, finitestate.StatusInstalled, finitestate.StatusError} {
		h, err := m.newHandle(fakeRuntime, f.cfg.Runtimes[fakeRuntime], uuid.Must(uuid.NewV6()), state)
		require.NoError(t, err)
		err = m.Start(t.Context(), h)
		require.ErrorIs(t, err, ErrInvalidState, state)
		assert.Equal(t, state, h.GetState())
	}
}

func TestManager_Stop_NotRunning(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "serve")
	m := f.manager(f.openSession())

	h, err := m.Get(t.Context(), fakeRuntime)
	require.NoError(t, err)
	require.NoError(t, m.Stop(t.Context(), h))
	assert.Equal(t, finitestate.StatusConfigured, h.GetState())
}

func TestManager_Find_Unknown(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "serve")
	_, ok := f.manager(f.openSession()).Find(fakeRuntime)
	assert.False(t, ok)
}

func TestHomeLayout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		entries []string
		want    string
	}{
		{name: "single directory", entries: []string{"tomcat/"}, want: "tomcat"},
		{name: "single file", entries: []string{"README"}, want: ""},
		{name: "two directories", entries: []string{"bin/", "conf/"}, want: ""},
		{name: "empty", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			root := t.TempDir()
			for _, e := range tt.entries {
				p := filepath.Join(root, e)
				if e[len(e)-1] == '/' {
					require.NoError(t, os.MkdirAll(p, 0o755))
					continue
				}
				require.NoError(t, os.WriteFile(p, nil, 0o644))
			}
			got, err := HomeLayout(root)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(root, tt.want), got)
		})
	}

	t.Run("missing root", func(t *testing.T) {
		t.Parallel()
		_, err := HomeLayout(filepath.Join(t.TempDir(), "absent"))
		require.ErrorIs(t, err, ErrLayout)
	})
}

func TestSystemPropertyArgs(t *testing.T) {
	t.Parallel()
	assert.Empty(t, SystemPropertyArgs(nil))
	assert.Equal(t,
		"-Da=1 -Dfedora.home=/srv/fedora -Dz.last=x",
		SystemPropertyArgs(props.Table{"z.last": "x", "a": "1", "fedora.home": "/srv/fedora"}),
	)
}

func TestDeployable_FileName(t *testing.T) {
	t.Parallel()
	d := Deployable{Path: "/repo/fcrepo-webapp-fedora-3.6.1.war", Context: "fedora"}
	assert.Equal(t, "fedora.war", d.FileName("war"))
	assert.Equal(t, "fedora.war", d.FileName(".war"))
	assert.Equal(t, "fedora.war", d.FileName(""))
}

func TestProvisionError(t *testing.T) {
	t.Parallel()
	cause := errors.New("disk full")
	err := error(&ProvisionError{Key: "tomcat7x", Err: cause})
	assert.Equal(t, "container provisioning failed: tomcat7x: disk full", err.Error())
	assert.ErrorIs(t, err, ErrProvisioningFailed)
	assert.ErrorIs(t, err, cause)
	assert.NoError(t, err.(*ProvisionError).PlaybackLogs(slog.Default().Handler()))
}

func TestManager_End(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "serve")
	sess := f.openSession()
	m := f.manager(sess)

	h, err := m.Get(t.Context(), fakeRuntime)
	require.NoError(t, err)
	assert.Equal(t, f.port, h.Port())
	oldID := sess.ID()
	calls := f.resolver.calls.Load()

	require.NoError(t, m.End(t.Context()))
	assert.NoFileExists(t, sess.Path())
	assert.NoDirExists(t, sess.Path("extracts"))
	assert.NoDirExists(t, sess.Path("containers"))
	assert.Empty(t, sess.Registry().Keys())

	f.cfg.Container.Port = f.port + 1
	next := f.openSession()
	assert.NotEqual(t, oldID, next.ID())

	again, err := f.manager(next).Get(t.Context(), fakeRuntime)
	require.NoError(t, err)
	assert.NotEqual(t, h.ID(), again.ID())
	assert.Equal(t, f.port+1, again.Port(), "a new session picks up the current configuration")
	assert.Equal(t, 2*calls, f.resolver.calls.Load())
}

func TestManager_Get_SaveFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "serve")
	sess := f.openSession()
	m := f.manager(sess)

	// a directory in place of the session file makes every save fail
	require.NoError(t, os.Mkdir(sess.Path(), 0o755))
	_, err := m.Get(t.Context(), fakeRuntime)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrProvisioningFailed)
	calls := f.resolver.calls.Load()

	_, ok := m.Find(fakeRuntime)
	assert.False(t, ok, "an unsaved handle is not registered")
	assert.NoError(t, sess.Registry().Failure(fakeRuntime))

	require.NoError(t, os.Remove(sess.Path()))
	h, err := m.Get(t.Context(), fakeRuntime)
	require.NoError(t, err)
	assert.Equal(t, finitestate.StatusConfigured, h.GetState())
	assert.Equal(t, 2*calls, f.resolver.calls.Load(), "provisioned again")
}

func TestManager_Get_ConfiguredHomeDir(t *testing.T) {
	t.Parallel()

	t.Run("stale entries are cleared", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "serve")
		root := filepath.Join(f.dir, "runtime-home")
		f.cfg.Container.HomeDir = root

		h, err := f.manager(f.openSession()).Get(t.Context(), fakeRuntime)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, runtimeFolder), h.HomeDir())
		assert.FileExists(t, filepath.Join(root, extractMarker))

		require.NoError(t, os.Mkdir(filepath.Join(root, "stray"), 0o755))
		require.NoError(t, f.manager(f.openSession()).End(t.Context()))

		h, err = f.manager(f.openSession()).Get(t.Context(), fakeRuntime)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, runtimeFolder), h.HomeDir())
		assert.NoDirExists(t, filepath.Join(root, "stray"))
	})

	t.Run("foreign content is refused", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "serve")
		root := filepath.Join(f.dir, "runtime-home")
		f.cfg.Container.HomeDir = root
		notes := filepath.Join(root, "notes.txt")
		require.NoError(t, os.MkdirAll(root, 0o755))
		require.NoError(t, os.WriteFile(notes, []byte("keep"), 0o644))

		_, err := f.manager(f.openSession()).Get(t.Context(), fakeRuntime)
		require.ErrorIs(t, err, ErrProvisioningFailed)
		require.ErrorIs(t, err, ErrLayout)
		assert.FileExists(t, notes)
	})
}

type recordEntry struct {
	rec session.Record
}

func (e recordEntry) Record() session.Record { return e.rec }

func TestManager_Restore_ChecksProcessIdentity(t *testing.T) {
	t.Parallel()

	self := os.Getpid()
	start, err := processStart(self)
	require.NoError(t, err)

	tests := []struct {
		name      string
		start     string
		wantState string
		wantPID   int
	}{
		{name: "same process", start: start, wantState: finitestate.StatusRunning, wantPID: self},
		{name: "reused pid", start: start + "0", wantState: finitestate.StatusStopped},
		{name: "no recorded start", start: "", wantState: finitestate.StatusStopped},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, "serve")
			sess := f.openSession()
			sess.Registry().Put(fakeRuntime, recordEntry{rec: session.Record{
				ID:           uuid.Must(uuid.NewV6()).String(),
				Runtime:      fakeRuntime,
				State:        finitestate.StatusRunning,
				PID:          self,
				ProcessStart: tt.start,
			}})
			require.NoError(t, sess.Save())

			h, ok := f.manager(f.openSession()).Find(fakeRuntime)
			require.True(t, ok)
			assert.Equal(t, tt.wantState, h.GetState())
			assert.Equal(t, tt.wantPID, h.PID())
		})
	}
}

func TestProcessStart(t *testing.T) {
	t.Parallel()

	first, err := processStart(os.Getpid())
	require.NoError(t, err)
	assert.NotEmpty(t, first)
	second, err := processStart(os.Getpid())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, ok := adopt(os.Getpid(), first)
	assert.True(t, ok)
	_, ok = adopt(os.Getpid(), first+"0")
	assert.False(t, ok)
	_, ok = adopt(0, first)
	assert.False(t, ok)
}
