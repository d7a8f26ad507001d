package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/atlanticdynamic/cargolynx/internal/interpolation"
	"github.com/atlanticdynamic/cargolynx/internal/props"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format names a config file syntax.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// decodeFunc decodes strictly: unknown keys are errors.
type decodeFunc func(data []byte, cfg *Config) error

var decoders = map[Format]decodeFunc{
	FormatTOML: decodeTOML,
	FormatYAML: decodeYAML,
}

func decodeTOML(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	err := dec.Decode(cfg)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// NewConfig loads the file at path, applies defaults and validates the result.
// ${...} tokens are left in place; call Resolve once the session variables are known.
func NewConfig(path string) (*Config, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToLoadConfig, err)
	}
	return NewConfigFromBytes(data, format)
}

// NewConfigFromBytes is NewConfig for in-memory content.
func NewConfigFromBytes(data []byte, format Format) (*Config, error) {
	decode, ok := decoders[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	cfg := &Config{}
	if err := decode(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToLoadConfig, err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToValidateConfig, err)
	}
	return cfg, nil
}

// Resolve expands ${...} tokens in place against lookup, then validates again
// since expanded values may be malformed.
func (c *Config) Resolve(lookup props.Table, opts ...interpolation.Option) error {
	if err := interpolation.InterpolateStruct(c, lookup, opts...); err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToLoadConfig, err)
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToValidateConfig, err)
	}
	return nil
}
