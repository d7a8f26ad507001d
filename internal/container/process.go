package container

import (
	"context"
	"io"
	"os/exec"
	"time"
)

// process is a running runtime. It was either launched by this manager, in which case
// its exit is observed directly, or adopted from a session record by PID and start time.
type process struct {
	pid int
	// start is the processStart identity captured at launch. Empty when it could not be read.
	start string
	done  chan struct{}
	err   error
}

func launch(cmd *exec.Cmd, out io.WriteCloser) (*process, error) {
	cmd.Stdout = out
	cmd.Stderr = out
	detach(cmd)
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &process{pid: cmd.Process.Pid, done: make(chan struct{})}
	p.start, _ = processStart(p.pid)
	go func() {
		p.err = cmd.Wait()
		_ = out.Close()
		close(p.done)
	}()
	return p, nil
}

// adopt takes over a process recorded by an earlier invocation. It refuses when the PID is
// gone or now belongs to a different process than the one recorded.
func adopt(pid int, start string) (*process, bool) {
	p := &process{pid: pid, start: start}
	if pid <= 0 || start == "" || !p.alive() {
		return nil, false
	}
	return p, true
}

func (p *process) owned() bool {
	return p.done != nil
}

func (p *process) alive() bool {
	if p.owned() {
		select {
		case <-p.done:
			return false
		default:
			return true
		}
	}
	if !pidAlive(p.pid) {
		return false
	}
	start, err := processStart(p.pid)
	return err == nil && start == p.start
}

// exitErr is the Wait result of a launched process that has exited.
func (p *process) exitErr() error {
	if !p.owned() || p.alive() {
		return nil
	}
	return p.err
}

// exited returns a channel closed once the process is gone. Adopted processes are polled
// until ctx is done.
func (p *process) exited(ctx context.Context, interval time.Duration) <-chan struct{} {
	if p.owned() {
		return p.done
	}
	ch := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if !p.alive() {
				close(ch)
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return ch
}

// wait blocks until the process exits, timeout elapses or ctx is done. It reports
// whether the process has exited.
func (p *process) wait(ctx context.Context, timeout, interval time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	select {
	case <-p.exited(ctx, interval):
		return true
	case <-ctx.Done():
		return !p.alive()
	}
}

// terminate and kill never signal an adopted PID that has since been reused.
func (p *process) terminate() error {
	if !p.alive() {
		return nil
	}
	return terminate(p.pid)
}

func (p *process) kill() error {
	if !p.alive() {
		return nil
	}
	return kill(p.pid)
}
