package container

import (
	"log/slog"
	"time"
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used by the manager and its handles.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithLogHandler sets the log handler used by the manager and its handles.
func WithLogHandler(handler slog.Handler) Option {
	return func(m *Manager) {
		m.logger = slog.New(handler)
	}
}

// WithLayoutPolicy replaces HomeLayout.
func WithLayoutPolicy(policy LayoutPolicy) Option {
	return func(m *Manager) {
		if policy != nil {
			m.layout = policy
		}
	}
}

// WithPortPollInterval sets how often readiness checks dial the runtime port.
func WithPortPollInterval(interval time.Duration) Option {
	return func(m *Manager) {
		if interval > 0 {
			m.pollInterval = interval
		}
	}
}
