// Package finitestate wraps go-fsm with the lifecycle states of a provisioned container.
package finitestate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robbyt/go-fsm"
)

// Lifecycle states of a container handle.
const (
	StatusUninstalled = "Uninstalled"
	StatusInstalled   = "Installed"
	StatusConfigured  = "Configured"
	StatusRunning     = "Running"
	StatusStopped     = "Stopped"
	StatusError       = "Error"
)

// LifecycleTransitions lists the allowed moves between states. Error is terminal.
var LifecycleTransitions = map[string][]string{
	StatusUninstalled: {StatusInstalled, StatusError},
	StatusInstalled:   {StatusConfigured, StatusError},
	StatusConfigured:  {StatusRunning, StatusError},
	StatusRunning:     {StatusStopped, StatusError},
	StatusStopped:     {StatusRunning, StatusError},
	StatusError:       {},
}

// States returns every lifecycle state in progression order.
func States() []string {
	return []string{
		StatusUninstalled,
		StatusInstalled,
		StatusConfigured,
		StatusRunning,
		StatusStopped,
		StatusError,
	}
}

// IsValid reports whether s names a lifecycle state.
func IsValid(s string) bool {
	_, ok := LifecycleTransitions[s]
	return ok
}

// Machine tracks the lifecycle of one container handle.
type Machine interface {
	// Transition moves to state, failing if the move is not allowed.
	Transition(state string) error

	// GetState returns the current state.
	GetState() string

	// GetStateChan emits the state on every change until ctx is canceled.
	GetStateChan(ctx context.Context) <-chan string
}

// NewAt creates a Machine starting in state. New handles start in StatusUninstalled;
// restored handles start in their persisted state.
func NewAt(handler slog.Handler, state string) (Machine, error) {
	if !IsValid(state) {
		return nil, fmt.Errorf("unknown lifecycle state %q", state)
	}
	machine, err := fsm.New(handler, state, LifecycleTransitions)
	if err != nil {
		return nil, err
	}
	return machine, nil
}
