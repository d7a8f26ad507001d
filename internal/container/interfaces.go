package container

import (
	"context"

	"github.com/atlanticdynamic/cargolynx/internal/artifact"
)

// Resolver turns an archive reference into a local file.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (artifact.Result, error)
}

// Extractor unpacks an archive into a directory.
type Extractor interface {
	Extract(archivePath, destDir string) error
}

// LayoutPolicy picks the runtime home inside an extraction root.
type LayoutPolicy func(extractRoot string) (string, error)
