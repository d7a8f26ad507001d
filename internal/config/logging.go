package config

import "fmt"

// LogFormat is the log output format.
type LogFormat string

// LogLevel is the log verbosity.
type LogLevel string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LoggingConfig controls the tool's own log output.
type LoggingConfig struct {
	Format LogFormat `toml:"format" yaml:"format"`
	Level  LogLevel  `toml:"level"  yaml:"level"`
}

func (f LogFormat) IsValid() bool {
	switch f {
	case "", LogFormatText, LogFormatJSON:
		return true
	}
	return false
}

func (l LogLevel) IsValid() bool {
	switch l {
	case "", LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	}
	return false
}

// Validate checks the format and level names.
func (lc LoggingConfig) Validate() error {
	if !lc.Format.IsValid() {
		return fmt.Errorf("unknown log format: %s", lc.Format)
	}
	if !lc.Level.IsValid() {
		return fmt.Errorf("unknown log level: %s", lc.Level)
	}
	return nil
}
