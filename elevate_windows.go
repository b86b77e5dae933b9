//go:build windows

package servicectl

import (
	"context"
	"fmt"

	"golang.org/x/sys/windows"
)

// isElevated reports whether the process token carries administrator
// privilege.
func isElevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}

type windowsEscalator struct{}

func newEscalator(_ Platform, _ bool) Escalator {
	return &windowsEscalator{}
}

// EnsureElevated never relaunches through UAC on its own; a silent
// relaunch would detach the command from the caller's console and its
// exit code. It reports what to do instead.
func (e *windowsEscalator) EnsureElevated(_ context.Context, reason string) error {
	if isElevated() {
		return nil
	}
	return fmt.Errorf("%w: %s requires administrator rights, re-run from an elevated prompt", ErrInsufficientPrivilege, reason)
}
