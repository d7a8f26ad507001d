// Package container provisions servlet runtimes into a build session and controls their
// processes. Each identity key is provisioned at most once per session.
package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/atlanticdynamic/cargolynx/internal/config"
	"github.com/atlanticdynamic/cargolynx/internal/finitestate"
	"github.com/atlanticdynamic/cargolynx/internal/logging"
	"github.com/atlanticdynamic/cargolynx/internal/logging/writers"
	"github.com/atlanticdynamic/cargolynx/internal/props"
	"github.com/atlanticdynamic/cargolynx/internal/session"
	"github.com/gofrs/uuid/v5"
	"github.com/robbyt/go-loglater"
)

const (
	extractsDir      = "extracts"
	containersDir    = "containers"
	baseDirName      = "base"
	extractMarker    = ".cargolynx-extract"
	ProvisionLogFile = "provision.log"

	defaultPollInterval = 250 * time.Millisecond
	killGrace           = 5 * time.Second
)

// Options is the provisioning context shared by every handle of a Manager.
type Options struct {
	Session   *session.Session
	Config    *config.Config
	Resolver  Resolver
	Extractor Extractor

	// Lookup holds the variables templates resolve against. Defaults to
	// Config.Lookup(Session.Variables()).
	Lookup props.Table
}

// Manager provisions and controls container handles for one session.
type Manager struct {
	session   *session.Session
	cfg       *config.Config
	resolver  Resolver
	extractor Extractor
	lookup    props.Table

	layout       LayoutPolicy
	pollInterval time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// NewManager creates a Manager over the session in o.
func NewManager(o Options, opts ...Option) (*Manager, error) {
	var errs []error
	if o.Session == nil {
		errs = append(errs, errors.New("session is required"))
	}
	if o.Config == nil {
		errs = append(errs, errors.New("config is required"))
	}
	if o.Resolver == nil {
		errs = append(errs, errors.New("resolver is required"))
	}
	if o.Extractor == nil {
		errs = append(errs, errors.New("extractor is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := o.Session.Own(extractsDir, containersDir); err != nil {
		return nil, err
	}

	m := &Manager{
		session:      o.Session,
		cfg:          o.Config,
		resolver:     o.Resolver,
		extractor:    o.Extractor,
		lookup:       o.Lookup,
		layout:       HomeLayout,
		pollInterval: defaultPollInterval,
		logger:       slog.Default().WithGroup("container.Manager"),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.lookup == nil {
		m.lookup = o.Config.Lookup(o.Session.Variables())
	}
	return m, nil
}

// Get returns the handle for key, provisioning it on first use. A key whose provisioning
// failed keeps failing with the recorded error for the rest of the session.
func (m *Manager) Get(ctx context.Context, key string) (*Handle, error) {
	reg := m.session.Registry()
	if cause := reg.Failure(key); cause != nil {
		return nil, asProvisionError(key, cause)
	}
	if h, ok := m.Find(key); ok {
		return h, nil
	}
	return m.provision(ctx, key)
}

// Find returns the existing handle for key without provisioning. Handles recorded by an
// earlier invocation of the session are restored.
func (m *Manager) Find(key string) (*Handle, bool) {
	reg := m.session.Registry()
	if e, ok := reg.Get(key); ok {
		h, ok := e.(*Handle)
		return h, ok
	}

	rec, ok := reg.Restored(key)
	if !ok || rec.Failed() {
		return nil, false
	}
	h, err := m.restore(rec)
	if err != nil {
		m.logger.Warn("Ignoring unusable session record", "key", key, "error", err)
		return nil, false
	}
	reg.Put(key, h)
	return h, true
}

// End stops every running handle, then ends the session so the next build provisions
// afresh. The session is left intact when a handle cannot be stopped. Handles obtained
// before End must not be used afterwards.
func (m *Manager) End(ctx context.Context) error {
	var errs []error
	for _, key := range m.session.Registry().Keys() {
		h, ok := m.Find(key)
		if !ok {
			continue
		}
		if err := m.Stop(ctx, h); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("session not ended: %w", err)
	}
	return m.session.End()
}

// Status refreshes every known handle and returns the persisted form of each key.
func (m *Manager) Status() []session.Record {
	for _, key := range m.session.Registry().Keys() {
		if h, ok := m.Find(key); ok {
			h.refresh()
		}
	}
	return m.session.Registry().Records()
}

// ProvisionLog is the file holding the provisioning history of key.
func (m *Manager) ProvisionLog(key string) string {
	return m.session.Path(containersDir, key, ProvisionLogFile)
}

func (m *Manager) newHandle(key string, rt config.RuntimeConfig, id uuid.UUID, state string) (*Handle, error) {
	collector := loglater.NewLogCollector(m.logger.Handler())
	logger := slog.New(collector).With("key", key, "id", id)

	sm, err := finitestate.NewAt(collector, state)
	if err != nil {
		return nil, fmt.Errorf("%s failed to create state machine: %w", key, err)
	}

	h := &Handle{
		id:           id,
		key:          key,
		runtime:      rt,
		manager:      m,
		fsm:          sm,
		logger:       logger,
		logCollector: collector,
	}
	h.touchLocked()
	return h, nil
}

func (m *Manager) restore(rec session.Record) (*Handle, error) {
	rt, ok := m.cfg.Runtimes[rec.Key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", config.ErrUnknownRuntime, rec.Key)
	}

	state := rec.State
	if !finitestate.IsValid(state) {
		return nil, fmt.Errorf("%w: unknown state %q", ErrInvalidState, state)
	}
	switch state {
	case finitestate.StatusConfigured, finitestate.StatusRunning, finitestate.StatusStopped:
	default:
		return nil, fmt.Errorf("%w: record in state %q", ErrInvalidState, state)
	}

	id, err := uuid.FromString(rec.ID)
	if err != nil {
		id = uuid.Must(uuid.NewV6())
	}

	var proc *process
	if state == finitestate.StatusRunning {
		if p, ok := adopt(rec.PID, rec.ProcessStart); ok {
			proc = p
		} else {
			m.logger.Warn("Recorded container process is gone", "key", rec.Key, "pid", rec.PID)
			state = finitestate.StatusStopped
		}
	}

	h, err := m.newHandle(rec.Key, rt, id, state)
	if err != nil {
		return nil, err
	}
	h.homeDir = rec.HomeDir
	h.baseDir = rec.BaseDir
	h.logFile = rec.LogFile
	h.port = rec.Port
	h.sysProps = props.Table(rec.SystemProperties).Clone()
	h.proc = proc
	if !rec.UpdatedAt.IsZero() {
		h.updatedAt = rec.UpdatedAt
	}
	if rec.Deployable != nil {
		h.deployable = &Deployable{Path: rec.Deployable.Path, Context: rec.Deployable.Context}
	}

	h.logger.Info("Restored container from session", "state", state, "pid", rec.PID)
	return h, nil
}

// fail marks key as failed for the session and persists the failure.
func (m *Manager) fail(key string, h *Handle, cause error) error {
	perr := &ProvisionError{Key: key, Err: cause}
	if h != nil {
		if err := h.fsm.Transition(finitestate.StatusError); err != nil {
			h.logger.Error("Failed to record error state", "error", err)
		}
		h.logger.Error("Provisioning failed", "error", cause)
		perr.logs = h.logCollector
		m.writeProvisionLog(h)
	}

	m.session.Registry().Fail(key, cause)
	if err := m.save(); err != nil {
		m.logger.Error("Failed to save session", "error", err)
	}
	return perr
}

func asProvisionError(key string, cause error) error {
	var perr *ProvisionError
	if errors.As(cause, &perr) {
		return perr
	}
	return &ProvisionError{Key: key, Err: cause}
}

// writeProvisionLog appends the handle's log history to its provision log file.
func (m *Manager) writeProvisionLog(h *Handle) {
	path := m.ProvisionLog(h.key)
	w, err := writers.CreateWriter(path)
	if err != nil {
		m.logger.Warn("Cannot write provision log", "path", path, "error", err)
		return
	}
	defer func() {
		if err := w.Close(); err != nil {
			m.logger.Warn("Failed to close provision log", "path", path, "error", err)
		}
	}()
	if err := h.PlaybackLogs(logging.SetupHandlerJSON("debug", w)); err != nil {
		m.logger.Warn("Failed to write provision log", "path", path, "error", err)
	}
}

func (m *Manager) save() error {
	if err := m.session.Save(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}
