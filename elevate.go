package servicectl

import (
	"context"
)

// Escalator obtains elevated privilege for commands that need it.
// Business logic only ever calls EnsureElevated; how the prompt is
// presented (sudo re-exec, native authentication dialog, guidance to
// relaunch elevated) is the implementation's concern. An Escalator is
// consulted at most once per invocation.
type Escalator interface {
	// EnsureElevated returns nil when the process already has the
	// required privilege. Otherwise it may prompt and re-exec; when
	// that is impossible or declined it returns
	// ErrInsufficientPrivilege. reason is shown to the user in the
	// prompt.
	EnsureElevated(ctx context.Context, reason string) error
}

// NewEscalator returns the platform escalator. nonInteractive turns
// every would-be prompt into an ErrInsufficientPrivilege failure, for
// scripted callers that must never block on a dialog.
func NewEscalator(platform Platform, nonInteractive bool) Escalator {
	return newEscalator(platform, nonInteractive)
}

// NeedsElevation reports whether the command mutates native service
// state and therefore requires elevation in the system context.
func NeedsElevation(command string, ctx InstallContext) bool {
	if ctx == ContextUser {
		return false
	}
	switch command {
	case "install", "uninstall", "reinstall", "start", "stop", "restart":
		return true
	default:
		return false
	}
}
