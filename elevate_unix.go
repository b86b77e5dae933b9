//go:build linux || darwin

package servicectl

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"golang.org/x/term"
)

// isElevated reports whether the process runs with root privilege.
func isElevated() bool {
	return os.Geteuid() == 0
}

type unixEscalator struct {
	platform       Platform
	nonInteractive bool
	// prompted guards the at-most-once-per-invocation rule
	prompted bool
}

func newEscalator(platform Platform, nonInteractive bool) Escalator {
	return &unixEscalator{platform: platform, nonInteractive: nonInteractive}
}

// EnsureElevated re-execs the current invocation under sudo on a
// terminal. On macOS without a terminal it falls back to the native
// authentication dialog via osascript. Successful re-exec replaces the
// process and never returns.
func (e *unixEscalator) EnsureElevated(ctx context.Context, reason string) error {
	if isElevated() {
		return nil
	}
	if e.nonInteractive || e.prompted {
		return fmt.Errorf("%w: %s requires root, re-run with sudo", ErrInsufficientPrivilege, reason)
	}
	e.prompted = true

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("%w: cannot resolve own executable: %v", ErrInsufficientPrivilege, err)
	}

	if hasTerminal() {
		sudoPath, err := exec.LookPath("sudo")
		if err != nil {
			return fmt.Errorf("%w: sudo not found, re-run as root", ErrInsufficientPrivilege)
		}
		fmt.Fprintf(os.Stderr, "%s requires root; re-running under sudo\n", reason)
		argv := append([]string{sudoPath, exe}, os.Args[1:]...)
		// exec replaces the process image; nothing runs past here on
		// success
		if err := syscall.Exec(sudoPath, argv, os.Environ()); err != nil {
			return fmt.Errorf("%w: sudo re-exec failed: %v", ErrInsufficientPrivilege, err)
		}
		return nil
	}

	if e.platform == PlatformDarwin {
		return e.osascriptElevate(ctx, exe, reason)
	}
	return fmt.Errorf("%w: %s requires root and no terminal is available", ErrInsufficientPrivilege, reason)
}

// osascriptElevate runs the invocation through the macOS
// authentication dialog. Unlike the sudo path this runs the elevated
// command as a child, so the caller must treat a nil return as
// command-already-done.
func (e *unixEscalator) osascriptElevate(ctx context.Context, exe, reason string) error {
	script := fmt.Sprintf(
		"do shell script %q with administrator privileges with prompt %q",
		shellJoin(append([]string{exe}, os.Args[1:]...)), reason)

	cmd := exec.CommandContext(ctx, "osascript", "-e", script)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: authentication dialog: %v", ErrInsufficientPrivilege, err)
	}
	// the elevated child already performed the command
	os.Exit(0)
	return nil
}

// hasTerminal reports whether stdin is a TTY.
func hasTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// shellJoin quotes argv for `do shell script`.
func shellJoin(argv []string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
	}
	return strings.Join(quoted, " ")
}
