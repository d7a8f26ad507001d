// Package writers opens log destinations named by a string.
package writers

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Destination names understood by CreateWriter.
const (
	Stdout = "stdout"
	Stderr = "stderr"

	filePrefix = "file://"
)

// CreateWriter opens the destination named by output:
//   - "" or "stdout" and "stderr" name the process streams
//   - "file:///path" and any path containing a separator name a file, opened for append
//     with its directory created
//
// Closing a stream writer is a no-op.
func CreateWriter(output string) (io.WriteCloser, error) {
	switch {
	case output == "" || output == Stdout:
		return nopCloser{os.Stdout}, nil
	case output == Stderr:
		return nopCloser{os.Stderr}, nil
	case strings.HasPrefix(output, filePrefix):
		return openFile(strings.TrimPrefix(output, filePrefix))
	case IsFilePath(output):
		return openFile(output)
	default:
		return nil, fmt.Errorf("unsupported output: %s", output)
	}
}

// IsFilePath reports whether output names a file rather than a stream or a URL.
func IsFilePath(output string) bool {
	if strings.Contains(output, "://") {
		return strings.HasPrefix(output, filePrefix)
	}
	return strings.ContainsAny(output, `/\`)
}

func openFile(path string) (io.WriteCloser, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
