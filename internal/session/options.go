package session

import (
	"log/slog"
	"time"
)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets a custom logger for the Session.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithLogHandler sets a custom log handler for the Session.
func WithLogHandler(handler slog.Handler) Option {
	return func(s *Session) {
		s.logger = slog.New(handler)
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}
