package root

import (
	"context"
	"errors"

	"apphost/services"
)

// Exit codes of the launch command.
const (
	ExitOK          = 0
	ExitInvalid     = 1
	ExitStartFailed = 2
)

// ExitCode maps a command error to the process exit code. A launch
// interrupted during startup counts as a clean shutdown.
func ExitCode(err error) int {
	var startErr services.StartError
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return ExitOK
	case errors.As(err, &startErr):
		return ExitStartFailed
	default:
		return ExitInvalid
	}
}
