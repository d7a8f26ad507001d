package archive

import "errors"

var (
	ErrExtraction  = errors.New("archive extraction failed")
	ErrUnsafeEntry = errors.New("archive entry escapes destination")
)
