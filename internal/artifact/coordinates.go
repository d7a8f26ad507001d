// Package artifact locates packaged archives by Maven coordinates, URL or local path and
// returns a path on local disk.
package artifact

import (
	"fmt"
	"path"
	"strings"
)

// DefaultExtension is used when coordinates omit the extension.
const DefaultExtension = "jar"

// Coordinates identify an artifact in a Maven-layout repository.
type Coordinates struct {
	GroupID    string
	ArtifactID string
	Extension  string
	Classifier string
	Version    string
}

// ParseCoordinates accepts groupId:artifactId[:extension[:classifier]]:version.
func ParseCoordinates(s string) (Coordinates, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	for _, p := range parts {
		if p == "" || strings.ContainsAny(p, " \t/\\") {
			return Coordinates{}, fmt.Errorf("%w: %q", ErrCoordinates, s)
		}
	}

	c := Coordinates{Extension: DefaultExtension}
	switch len(parts) {
	case 3:
		c.GroupID, c.ArtifactID, c.Version = parts[0], parts[1], parts[2]
	case 4:
		c.GroupID, c.ArtifactID, c.Extension, c.Version = parts[0], parts[1], parts[2], parts[3]
	case 5:
		c.GroupID, c.ArtifactID, c.Extension, c.Classifier, c.Version =
			parts[0], parts[1], parts[2], parts[3], parts[4]
	default:
		return Coordinates{}, fmt.Errorf("%w: %q needs 3 to 5 fields", ErrCoordinates, s)
	}
	return c, nil
}

// String formats the coordinates in the shortest form ParseCoordinates reads back.
func (c Coordinates) String() string {
	ext := c.Extension
	if ext == "" {
		ext = DefaultExtension
	}
	switch {
	case c.Classifier != "":
		return strings.Join([]string{c.GroupID, c.ArtifactID, ext, c.Classifier, c.Version}, ":")
	case ext != DefaultExtension:
		return strings.Join([]string{c.GroupID, c.ArtifactID, ext, c.Version}, ":")
	default:
		return strings.Join([]string{c.GroupID, c.ArtifactID, c.Version}, ":")
	}
}

// FileName is the artifact's file name inside its version directory.
func (c Coordinates) FileName() string {
	ext := c.Extension
	if ext == "" {
		ext = DefaultExtension
	}
	name := c.ArtifactID + "-" + c.Version
	if c.Classifier != "" {
		name += "-" + c.Classifier
	}
	return name + "." + ext
}

// Path is the slash-separated location relative to a repository root.
func (c Coordinates) Path() string {
	return path.Join(strings.ReplaceAll(c.GroupID, ".", "/"), c.ArtifactID, c.Version, c.FileName())
}
