package config

import "errors"

var (
	ErrFailedToLoadConfig     = errors.New("failed to load config")
	ErrFailedToValidateConfig = errors.New("failed to validate config")
	ErrUnsupportedConfigVer   = errors.New("unsupported config version")
	ErrUnsupportedFormat      = errors.New("unsupported config file format")
	ErrUnknownRuntime         = errors.New("unknown runtime")
)
