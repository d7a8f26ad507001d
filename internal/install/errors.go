package install

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("invalid install option")
	ErrInstallationFailed = errors.New("installation failed")
)

// ValidationKind classifies a rejected option.
type ValidationKind string

const (
	KindMissingRequiredKey ValidationKind = "missing-required-key"
	KindMalformedValue     ValidationKind = "malformed-value"
)

// ValidationError names the offending option key.
type ValidationError struct {
	Key    string
	Kind   ValidationKind
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Kind == KindMissingRequiredKey {
		return fmt.Sprintf("%s: required key %q is missing", e.Kind, e.Key)
	}
	if e.Reason == "" {
		return fmt.Sprintf("%s: key %q has invalid value %q", e.Kind, e.Key, e.Value)
	}
	return fmt.Sprintf("%s: key %q has invalid value %q: %s", e.Kind, e.Key, e.Value, e.Reason)
}

// Is makes every ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func missing(key string) error {
	return &ValidationError{Key: key, Kind: KindMissingRequiredKey}
}

func malformed(key, value, reason string) error {
	return &ValidationError{Key: key, Kind: KindMalformedValue, Value: value, Reason: reason}
}
