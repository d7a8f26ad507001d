// Package session keeps the state of one build session on disk so that separate
// invocations of the tool share provisioned containers.
package session

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/atlanticdynamic/cargolynx/internal/props"
	"github.com/gofrs/uuid/v5"
	"github.com/pelletier/go-toml/v2"
)

// FileName is the session file inside the session directory.
const FileName = "session.toml"

const formatVersion = "v1"

type document struct {
	Version   string            `toml:"version"`
	ID        string            `toml:"id"`
	CreatedAt time.Time         `toml:"created_at"`
	Variables map[string]string `toml:"variables,omitempty"`
	Owned     []string          `toml:"owned,omitempty"`
	Handles   []Record          `toml:"handles,omitempty"`
}

// Session is the context shared by every operation of one build session.
type Session struct {
	dir       string
	id        uuid.UUID
	createdAt time.Time

	mu        sync.Mutex
	variables props.Table
	owned     map[string]struct{}
	registry  *Registry

	logger *slog.Logger
	now    func() time.Time
}

// Open loads the session stored in dir, or starts a new one if dir holds no session file.
// The directory is created when missing.
func Open(dir string, opts ...Option) (*Session, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, ErrNoDir
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session directory: %w", err)
	}

	s := &Session{
		dir:       abs,
		variables: props.Table{},
		owned:     map[string]struct{}{},
		registry:  newRegistry(),
		logger:    slog.Default().WithGroup("session.Session"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := os.ReadFile(s.Path())
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.id = uuid.Must(uuid.NewV6())
		s.createdAt = s.now().UTC().Truncate(time.Second)
		s.logger.Debug("Starting new session", "id", s.id, "dir", abs)
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if doc.Version != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrCorrupt, doc.Version)
	}
	id, err := uuid.FromString(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	for _, rec := range doc.Handles {
		if rec.Key == "" {
			return nil, fmt.Errorf("%w: handle without key", ErrCorrupt)
		}
	}
	for _, name := range doc.Owned {
		if !isEntryName(name) {
			return nil, fmt.Errorf("%w: owned entry %q", ErrCorrupt, name)
		}
		s.owned[name] = struct{}{}
	}

	s.id = id
	s.createdAt = doc.CreatedAt
	s.variables = props.Merge(doc.Variables)
	s.registry.load(doc.Handles)
	s.logger.Debug("Loaded session", "id", s.id, "handles", len(doc.Handles))
	return s, nil
}

func (s *Session) ID() uuid.UUID        { return s.id }
func (s *Session) Dir() string          { return s.dir }
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Registry returns the handle registry of this session.
func (s *Session) Registry() *Registry {
	return s.registry
}

// Path joins elem onto the session directory. Without elem it names the session file.
func (s *Session) Path(elem ...string) string {
	if len(elem) == 0 {
		return filepath.Join(s.dir, FileName)
	}
	return filepath.Join(append([]string{s.dir}, elem...)...)
}

// Own marks top-level entries of the session directory as belonging to the session, so
// End removes them. Names must be single path elements.
func (s *Session) Own(names ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		if !isEntryName(name) {
			return fmt.Errorf("%w: %q", ErrNotEntryName, name)
		}
		s.owned[name] = struct{}{}
	}
	return nil
}

func isEntryName(name string) bool {
	return name != "" && name != "." && name != ".." && name != FileName &&
		!strings.ContainsAny(name, `/\`)
}

// End tears the session down. The session file and every owned entry are removed, along
// with the session directory once it is empty; anything else in the directory is left in
// place. The registry and variables are cleared and the Session continues as a new session
// with a fresh ID, so the next Open of the same directory provisions from scratch. Owned
names stay claimed for the new session.
func (s *Session) End() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, name := range slices.Sorted(maps.Keys(s.owned)) {
		if err := os.RemoveAll(filepath.Join(s.dir, name)); err != nil {
			errs = append(errs, err)
		}
	}
	if err := os.Remove(s.Path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	_ = os.Remove(s.dir)

	ended := s.id
	s.registry.reset()
	s.variables = props.Table{}
	s.id = uuid.Must(uuid.NewV6())
	s.createdAt = s.now().UTC().Truncate(time.Second)
	s.logger.Info("Session ended", "id", ended, "dir", s.dir)
	return nil
}

// Variables returns a copy of the session variables.
func (s *Session) Variables() props.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.variables.Clone()
}

// SetVariables merges vars into the session variables; later values win.
func (s *Session) SetVariables(vars props.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.variables = props.Merge(s.variables, vars)
}

// Save writes the session file atomically.
func (s *Session) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := document{
		Version:   formatVersion,
		ID:        s.id.String(),
		CreatedAt: s.createdAt,
		Variables: s.variables.Clone(),
		Owned:     slices.Sorted(maps.Keys(s.owned)),
		Handles:   s.registry.Records(),
	}
	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := writeFileAtomic(s.Path(), data, 0o644); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	s.logger.Debug("Session saved", "handles", len(doc.Handles))
	return nil
}

// writeFileAtomic writes through a temp file in the same directory and renames it over path.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
