// Package logging builds the slog handlers used by the command line tool.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Output formats accepted by SetupHandler.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// level maps a level name to the charm level, and whether timestamps and callers are shown.
func level(name string) (lvl log.Level, timestamp, caller bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return log.DebugLevel, true, true
	case "debug":
		return log.DebugLevel, true, false
	case "warn", "warning":
		return log.WarnLevel, false, false
	case "error":
		return log.ErrorLevel, false, false
	default:
		return log.InfoLevel, false, false
	}
}

// SetupHandlerText returns a charmbracelet/log handler writing to w, or stderr when w is nil.
func SetupHandlerText(logLevel string, w io.Writer) slog.Handler {
	if w == nil {
		w = os.Stderr
	}
	lvl, timestamp, caller := level(logLevel)
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: timestamp,
		ReportCaller:    caller,
		Level:           lvl,
	})
}

// SetupHandlerJSON returns a JSON handler writing to w, or stderr when w is nil.
func SetupHandlerJSON(logLevel string, w io.Writer) slog.Handler {
	if w == nil {
		w = os.Stderr
	}
	lvl, _, caller := level(logLevel)

	slogLevel := slog.LevelInfo
	switch lvl {
	case log.DebugLevel:
		slogLevel = slog.LevelDebug
	case log.WarnLevel:
		slogLevel = slog.LevelWarn
	case log.ErrorLevel:
		slogLevel = slog.LevelError
	}

	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     slogLevel,
		AddSource: caller,
	})
}

// SetupHandler picks the handler for format.
func SetupHandler(format, logLevel string, w io.Writer) (slog.Handler, error) {
	switch strings.ToLower(format) {
	case "", FormatText:
		return SetupHandlerText(logLevel, w), nil
	case FormatJSON:
		return SetupHandlerJSON(logLevel, w), nil
	default:
		return nil, fmt.Errorf("unsupported log format: %q", format)
	}
}

// SetupLogger installs the handler as the slog default and returns it.
func SetupLogger(format, logLevel string, w io.Writer) (*slog.Logger, error) {
	handler, err := SetupHandler(format, logLevel, w)
	if err != nil {
		return nil, err
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}
