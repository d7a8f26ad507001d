package artifact

import "errors"

var (
	ErrResolution  = errors.New("artifact resolution failed")
	ErrCoordinates = errors.New("malformed artifact coordinates")
	ErrNotFound    = errors.New("artifact not found")
)
