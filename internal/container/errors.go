package container

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/robbyt/go-loglater"
)

var (
	ErrProvisioningFailed = errors.New("container provisioning failed")
	ErrInvalidState       = errors.New("invalid container state for operation")
	ErrStartFailed        = errors.New("container failed to start")
	ErrStopFailed         = errors.New("container failed to stop")
	ErrExited             = errors.New("container process exited")
	ErrLayout             = errors.New("cannot determine runtime home")
)

// ProvisionError records why an identity key could not be provisioned. It matches
// ErrProvisioningFailed and unwraps to the cause.
type ProvisionError struct {
	Key string
	Err error

	logs *loglater.LogCollector
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrProvisioningFailed, e.Key, e.Err)
}

func (e *ProvisionError) Unwrap() error {
	return e.Err
}

func (e *ProvisionError) Is(target error) bool {
	return target == ErrProvisioningFailed
}

// PlaybackLogs replays the provisioning log of the failed attempt. Errors restored from
// an earlier invocation carry no log history.
func (e *ProvisionError) PlaybackLogs(handler slog.Handler) error {
	if e.logs == nil {
		return nil
	}
	return e.logs.PlayLogs(handler)
}
