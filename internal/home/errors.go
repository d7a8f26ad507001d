package home

import "errors"

var (
	ErrPrepare    = errors.New("failed to prepare home")
	ErrNoHomeDir  = errors.New("home directory is not configured")
	ErrNoTemplate = errors.New("install properties template not found")
)
