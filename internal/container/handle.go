package container

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"sync"
	"time"

	"github.com/atlanticdynamic/cargolynx/internal/config"
	"github.com/atlanticdynamic/cargolynx/internal/finitestate"
	"github.com/atlanticdynamic/cargolynx/internal/props"
	"github.com/atlanticdynamic/cargolynx/internal/session"
	"github.com/gofrs/uuid/v5"
	"github.com/robbyt/go-loglater"
	"github.com/robbyt/go-supervisor/supervisor"
)

// Interface guards
var (
	_ supervisor.Runnable  = (*Handle)(nil)
	_ supervisor.Stateable = (*Handle)(nil)
	_ session.Entry        = (*Handle)(nil)
)

// Handle is one provisioned runtime instance, owned by a Manager through the session
// registry. The same *Handle is returned for every Get of its key within a session.
type Handle struct {
	id      uuid.UUID
	key     string
	runtime config.RuntimeConfig
	manager *Manager

	fsm          finitestate.Machine
	logger       *slog.Logger
	logCollector *loglater.LogCollector

	// set while provisioning, fixed afterwards
	homeDir    string
	baseDir    string
	logFile    string
	port       int
	deployable *Deployable
	sysProps   props.Table

	mu        sync.Mutex
	proc      *process
	updatedAt time.Time

	runMu     sync.Mutex
	runCancel context.CancelFunc
}

func (h *Handle) ID() uuid.UUID   { return h.id }
func (h *Handle) Key() string     { return h.key }
func (h *Handle) HomeDir() string { return h.homeDir }
func (h *Handle) BaseDir() string { return h.baseDir }
func (h *Handle) LogFile() string { return h.logFile }
func (h *Handle) Port() int       { return h.port }

// Deployable returns the attached application archive, or nil.
func (h *Handle) Deployable() *Deployable {
	if h.deployable == nil {
		return nil
	}
	d := *h.deployable
	return &d
}

// DeployedPath is where the deployable was copied inside the base directory.
func (h *Handle) DeployedPath() string {
	if h.deployable == nil {
		return ""
	}
	return filepath.Join(h.baseDir, h.runtime.DeployDir, h.deployable.FileName(h.runtime.DeployableType))
}

// SystemProperties returns the properties passed to the runtime.
func (h *Handle) SystemProperties() props.Table {
	return h.sysProps.Clone()
}

// PID returns the runtime process ID, or 0 when no process is known.
func (h *Handle) PID() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.proc == nil {
		return 0
	}
	return h.proc.pid
}

// String returns a unique identifier for this handle
func (h *Handle) String() string {
	return fmt.Sprintf("Container<%s>", h.key)
}

// GetState returns the lifecycle state.
func (h *Handle) GetState() string {
	return h.fsm.GetState()
}

// IsRunning reports whether the runtime process is up.
func (h *Handle) IsRunning() bool {
	return h.fsm.GetState() == finitestate.StatusRunning
}

// GetStateChan returns a channel that emits state changes
func (h *Handle) GetStateChan(ctx context.Context) <-chan string {
	return h.fsm.GetStateChan(ctx)
}

// Run starts the runtime and keeps it in the foreground until ctx is canceled, Stop is
// called or the process exits by itself.
func (h *Handle) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	h.runMu.Lock()
	h.runCancel = cancel
	h.runMu.Unlock()

	if err := h.manager.Start(runCtx, h); err != nil {
		return err
	}

	h.mu.Lock()
	proc := h.proc
	h.mu.Unlock()
	if proc == nil {
		return fmt.Errorf("%w: %s has no process", ErrStartFailed, h.key)
	}

	select {
	case <-runCtx.Done():
		h.logger.Debug("Run context done, stopping container")
		return h.manager.Stop(context.WithoutCancel(ctx), h)
	case <-proc.exited(runCtx, h.manager.pollInterval):
		h.refresh()
		if err := h.manager.save(); err != nil {
			h.logger.Error("Failed to save session", "error", err)
		}
		if err := proc.exitErr(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrExited, h.key, err)
		}
		return fmt.Errorf("%w: %s", ErrExited, h.key)
	}
}

// Stop ends a Run. Use Manager.Stop to stop a runtime started with Manager.Start.
func (h *Handle) Stop() {
	h.runMu.Lock()
	defer h.runMu.Unlock()
	if h.runCancel != nil {
		h.runCancel()
	}
}

// PlaybackLogs replays the provisioning and lifecycle log of this handle to handler.
func (h *Handle) PlaybackLogs(handler slog.Handler) error {
	return h.logCollector.PlayLogs(handler)
}

// Record returns the persisted form of the handle.
func (h *Handle) Record() session.Record {
	h.mu.Lock()
	defer h.mu.Unlock()

	rec := session.Record{
		Key:              h.key,
		ID:               h.id.String(),
		Runtime:          h.key,
		State:            h.fsm.GetState(),
		HomeDir:          h.homeDir,
		BaseDir:          h.baseDir,
		LogFile:          h.logFile,
		Port:             h.port,
		SystemProperties: maps.Clone(h.sysProps),
		UpdatedAt:        h.updatedAt,
	}
	if h.proc != nil {
		rec.PID = h.proc.pid
		rec.ProcessStart = h.proc.start
	}
	if h.deployable != nil {
		rec.Deployable = &session.DeployableRecord{
			Path:    h.deployable.Path,
			Context: h.deployable.Context,
		}
	}
	return rec
}

// refresh moves a Running handle to Stopped when its process is gone.
func (h *Handle) refresh() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.refreshLocked()
}

func (h *Handle) refreshLocked() string {
	state := h.fsm.GetState()
	if state != finitestate.StatusRunning {
		return state
	}
	if h.proc != nil && h.proc.alive() {
		return state
	}
	h.logger.Warn("Container process is gone", "pid", h.pidLocked())
	h.proc = nil
	if err := h.fsm.Transition(finitestate.StatusStopped); err != nil {
		h.logger.Error("Failed to record stopped state", "error", err)
	}
	h.touchLocked()
	return h.fsm.GetState()
}

func (h *Handle) pidLocked() int {
	if h.proc == nil {
		return 0
	}
	return h.proc.pid
}

func (h *Handle) touchLocked() {
	h.updatedAt = h.manager.now().UTC().Truncate(time.Second)
}
