package container

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/atlanticdynamic/cargolynx/internal/config"
	"github.com/atlanticdynamic/cargolynx/internal/finitestate"
	"github.com/atlanticdynamic/cargolynx/internal/interpolation"
	"github.com/atlanticdynamic/cargolynx/internal/logging/writers"
	"github.com/atlanticdynamic/cargolynx/internal/props"
)

// Start launches the runtime of a Configured or Stopped handle. Starting a Running
// handle does nothing.
func (m *Manager) Start(ctx context.Context, h *Handle) error {
	started, err := m.start(ctx, h)
	if err != nil || !started {
		return err
	}
	return m.save()
}

func (m *Manager) start(ctx context.Context, h *Handle) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch state := h.refreshLocked(); state {
	case finitestate.StatusRunning:
		h.logger.Debug("Container already running", "pid", h.pidLocked())
		return false, nil
	case finitestate.StatusConfigured, finitestate.StatusStopped:
	default:
		return false, fmt.Errorf("%w: cannot start %s from %s", ErrInvalidState, h.key, state)
	}

	cmd, err := m.command(h)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrStartFailed, h.key, err)
	}
	out, err := writers.CreateWriter(h.logFile)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrStartFailed, h.key, err)
	}
	proc, err := launch(cmd, out)
	if err != nil {
		_ = out.Close()
		return false, fmt.Errorf("%w: %s: %w", ErrStartFailed, h.key, err)
	}
	h.logger.Info("Container process launched", "pid", proc.pid, "command", cmd.Path, "log", h.logFile)

	if h.runtime.WaitForPort {
		if err := m.waitReady(ctx, h, proc); err != nil {
			if !m.halt(context.WithoutCancel(ctx), h, proc) {
				h.logger.Error("Container process did not exit", "pid", proc.pid)
			}
			return false, fmt.Errorf("%w: %s: %w", ErrStartFailed, h.key, err)
		}
	}

	h.proc = proc
	if err := h.fsm.Transition(finitestate.StatusRunning); err != nil {
		m.halt(context.WithoutCancel(ctx), h, proc)
		h.proc = nil
		return false, err
	}
	h.touchLocked()
	h.logger.Info("Container started", "pid", proc.pid, "port", h.port)
	return true, nil
}

// command builds the runtime command from the variant's argv and env templates.
func (m *Manager) command(h *Handle) (*exec.Cmd, error) {
	if len(h.runtime.Command) == 0 {
		return nil, errors.New("runtime has no command")
	}
	vars := m.variables(h)

	argv := make([]string, len(h.runtime.Command))
	for i, arg := range h.runtime.Command {
		argv[i] = interpolation.ExpandString(arg, vars)
	}

	// The runtime outlives this invocation, so it is not bound to a context.
	cmd := exec.Command(argv[0], argv[1:]...) //nolint:gosec // argv comes from the runtime configuration
	cmd.Dir = h.baseDir
	cmd.Env = os.Environ()
	env := props.Table(h.runtime.Env)
	for _, k := range env.Keys() {
		cmd.Env = append(cmd.Env, k+"="+interpolation.ExpandString(env[k], vars))
	}
	return cmd, nil
}

// waitReady polls the runtime port until it accepts a connection.
func (m *Manager) waitReady(ctx context.Context, h *Handle, proc *process) error {
	timeout := h.runtime.StartTimeout.AsDuration()
	if timeout <= 0 {
		timeout = config.DefaultStartTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(h.port))
	dialer := net.Dialer{Timeout: m.pollInterval}
	exited := proc.exited(ctx, m.pollInterval)
	for {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			_ = conn.Close()
			h.logger.Debug("Container port is accepting connections", "addr", addr)
			return nil
		}

		select {
		case <-exited:
			if err := proc.exitErr(); err != nil {
				return fmt.Errorf("%w before listening on %s: %w", ErrExited, addr, err)
			}
			return fmt.Errorf("%w before listening on %s", ErrExited, addr)
		case <-ctx.Done():
			return fmt.Errorf("port %s not ready: %w", addr, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Stop ends the runtime process of a Running handle: terminate, wait for the stop
// timeout, then kill. Stopping a handle that is not running does nothing.
func (m *Manager) Stop(ctx context.Context, h *Handle) error {
	stopped, err := m.stop(ctx, h)
	if err != nil || !stopped {
		return err
	}
	return m.save()
}

func (m *Manager) stop(ctx context.Context, h *Handle) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if state := h.refreshLocked(); state != finitestate.StatusRunning {
		h.logger.Debug("Container not running, nothing to stop", "state", state)
		return false, nil
	}

	proc := h.proc
	h.logger.Info("Stopping container", "pid", proc.pid)
	if !m.halt(ctx, h, proc) {
		return false, fmt.Errorf("%w: %s: pid %d still alive", ErrStopFailed, h.key, proc.pid)
	}

	h.proc = nil
	if err := h.fsm.Transition(finitestate.StatusStopped); err != nil {
		return false, err
	}
	h.touchLocked()
	h.logger.Info("Container stopped")
	return true, nil
}

// halt terminates proc, escalating to kill after the stop timeout. It reports whether
// the process is gone.
func (m *Manager) halt(ctx context.Context, h *Handle, proc *process) bool {
	if err := proc.terminate(); err != nil && proc.alive() {
		h.logger.Warn("Failed to signal container", "pid", proc.pid, "error", err)
	}
	timeout := h.runtime.StopTimeout.AsDuration()
	if timeout <= 0 {
		timeout = config.DefaultStopTimeout
	}
	if proc.wait(ctx, timeout, m.pollInterval) {
		return true
	}

	h.logger.Warn("Container did not stop in time, killing", "pid", proc.pid, "timeout", timeout)
	if err := proc.kill(); err != nil && proc.alive() {
		h.logger.Error("Failed to kill container", "pid", proc.pid, "error", err)
	}
	return proc.wait(context.WithoutCancel(ctx), killGrace, m.pollInterval)
}
