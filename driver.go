package servicectl

import (
	"context"
	"fmt"
	"os"
)

// Driver is the unified lifecycle API over the three native service
// managers. The dispatcher treats every implementation identically;
// all platform-specific behavior lives behind this interface.
type Driver interface {
	// Install provisions directories, generates and writes the native
	// descriptor, registers the service, and starts it. With an
	// existing registration it returns ErrAlreadyInstalled unless
	// force is set, in which case it uninstalls first.
	Install(ctx context.Context, force bool) error

	// Uninstall stops the service (ignoring already-stopped),
	// unregisters it, and removes the descriptor. Config, state, and
	// log directories are preserved.
	Uninstall(ctx context.Context) error

	// Start requests a start and waits for a confirmed running state
	Start(ctx context.Context) error

	// Stop requests a stop and waits for a confirmed stopped state
	Stop(ctx context.Context) error

	// Restart stops, waits a fixed delay, then starts
	Restart(ctx context.Context) error

	// Status derives the current state from native queries; read-only
	Status(ctx context.Context) (Status, error)

	// Validate runs every consistency check and aggregates violations
	// instead of aborting at the first
	Validate(ctx context.Context) []Violation
}

// NewDriver selects the native driver for the configured platform.
// The switch on the typed Platform enum happens here once; nothing
// else in the codebase compares OS names.
func NewDriver(cfg *Config) (Driver, error) {
	switch cfg.Platform {
	case PlatformDarwin:
		return newDriverLaunchd(cfg, newExecRunner()), nil
	case PlatformLinux:
		return newDriverSystemd(cfg, newExecRunner()), nil
	case PlatformWindows:
		return newDriverSCM(cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, cfg.Platform)
	}
}

// requireExecutable fails install early when the daemon binary is not
// present and executable; registration would only defer the failure to
// first start with a worse diagnostic.
func requireExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrMissingExecutable, path)
		}
		return fmt.Errorf("checking executable: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrMissingExecutable, path)
	}
	if info.Mode()&0o111 == 0 {
		return fmt.Errorf("%w: %s is not executable", ErrMissingExecutable, path)
	}
	return nil
}

// removeDescriptor deletes the native descriptor file, tolerating its
// absence.
func removeDescriptor(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing descriptor %s: %w", path, err)
	}
	return nil
}
