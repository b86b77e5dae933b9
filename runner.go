package servicectl

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// runner executes native tools (launchctl, systemctl, journalctl).
// Drivers hold a runner instead of calling exec directly so tests can
// substitute canned output for any native command.
type runner interface {
	// run executes the command and returns stdout. On failure the
	// returned error wraps the native stderr verbatim.
	run(ctx context.Context, name string, args ...string) (string, error)
}

// execRunner shells out with a bounded per-invocation timeout.
type execRunner struct {
	// timeout bounds one native invocation; zero means no bound
	timeout time.Duration
}

func newExecRunner() *execRunner {
	return &execRunner{timeout: DefaultExecTimeout}
}

func (r *execRunner) run(ctx context.Context, name string, args ...string) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.String(), &nativeError{
			cmd:    name + " " + strings.Join(args, " "),
			stderr: stderr.String(),
			err:    err,
		}
	}
	return stdout.String(), nil
}

// nativeError preserves the native tool's stderr next to the exec
// error. The propagation policy is that this text survives verbatim to
// the user; it is never collapsed into a generic message.
type nativeError struct {
	cmd    string
	stderr string
	err    error
}

func (e *nativeError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.cmd, e.err)
	if s := strings.TrimSpace(e.stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *nativeError) Unwrap() error {
	return e.err
}

// exitCodeOf extracts a process exit code from an exec error chain,
// returning -1 when there is none.
func exitCodeOf(err error) int {
	for err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode()
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return -1
		}
		err = u.Unwrap()
	}
	return -1
}
