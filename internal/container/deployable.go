package container

import (
	"path/filepath"
	"strings"
)

// Deployable is the application archive attached to a handle, mounted under Context.
type Deployable struct {
	Path    string
	Context string
}

// FileName is the name the archive gets in the deploy directory, e.g. "fedora.war".
func (d Deployable) FileName(ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = strings.TrimPrefix(filepath.Ext(d.Path), ".")
	}
	return d.Context + "." + ext
}
