package session

import "errors"

var (
	ErrCorrupt = errors.New("session file is corrupt")
	ErrNoDir   = errors.New("session directory is required")

	ErrNotEntryName = errors.New("not a single path element")
)
