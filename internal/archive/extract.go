// Package archive unpacks ZIP archives onto local disk.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Extractor unpacks archives. The zero value is not usable; call NewExtractor.
type Extractor struct {
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets a custom logger for the Extractor.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// NewExtractor creates an Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		logger: slog.Default().WithGroup("archive.Extractor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract unpacks archivePath into destDir, creating destDir if needed. Directory entries
// become empty directories and parent directories are created for nested files. Any entry
// resolving outside destDir aborts the extraction.
func (e *Extractor) Extract(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	defer func() {
		if err := r.Close(); err != nil {
			e.logger.Warn("Failed to close archive", "path", archivePath, "error", err)
		}
	}()

	root, err := filepath.Abs(destDir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	if err := os.MkdirAll(root, dirPerm); err != nil {
		return fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	e.logger.Debug("Extracting archive", "archive", archivePath, "dest", root, "entries", len(r.File))
	for _, f := range r.File {
		if err := extractEntry(f, root); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrExtraction, f.Name, err)
		}
	}
	return nil
}

func entryPath(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) ||
		filepath.IsAbs(filepath.FromSlash(name)) {
		return "", ErrUnsafeEntry
	}
	return target, nil
}

func extractEntry(f *zip.File, root string) error {
	target, err := entryPath(root, f.Name)
	if err != nil {
		return err
	}

	mode := f.Mode()
	if mode.IsDir() || strings.HasSuffix(f.Name, "/") {
		return os.MkdirAll(target, dirPerm)
	}
	if mode&os.ModeSymlink != 0 {
		// links are not followed or recreated
		return ErrUnsafeEntry
	}
	if err := os.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
		return err
	}

	perm := mode.Perm()
	if perm == 0 {
		perm = filePerm
	}

	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}
	// O_CREATE does not change the mode of an existing file
	return os.Chmod(target, perm)
}
