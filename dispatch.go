package servicectl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// DispatchOptions carry per-command modifiers from the CLI.
type DispatchOptions struct {
	// Force makes install replace an existing registration
	Force bool
	// TailLines is the line count for the logs command
	TailLines int
}

// Renderer turns reporting results into user-facing text. Every field
// has a plain-text default; the CLI swaps in styled rendering without
// the library depending on any styling package.
type Renderer struct {
	Status     func(Status) string
	Violations func([]Violation) string
	LogLine    func(LogLine) string
}

func plainRenderer() Renderer {
	return Renderer{
		Status: func(st Status) string { return st.String() },
		Violations: func(violations []Violation) string {
			if len(violations) == 0 {
				return "validate: ok"
			}
			lines := make([]string, len(violations))
			for i, v := range violations {
				lines[i] = fmt.Sprintf("violation: %s", v)
			}
			return strings.Join(lines, "\n")
		},
		LogLine: func(line LogLine) string { return line.String() },
	}
}

// DispatcherOption customizes a Dispatcher at construction time.
type DispatcherOption func(*Dispatcher)

// WithRenderer overrides the output rendering. Nil fields keep the
// plain-text default.
func WithRenderer(r Renderer) DispatcherOption {
	return func(d *Dispatcher) {
		if r.Status != nil {
			d.render.Status = r.Status
		}
		if r.Violations != nil {
			d.render.Violations = r.Violations
		}
		if r.LogLine != nil {
			d.render.LogLine = r.LogLine
		}
	}
}

// Dispatcher is the single entry point behind the CLI. It owns the
// command-to-driver mapping, the elevation check, and the translation
// of errors into exit codes. It never retries a failed native call.
type Dispatcher struct {
	cfg       *Config
	driver    Driver
	reporter  *Reporter
	escalator Escalator
	render    Renderer
	out       io.Writer
	errOut    io.Writer
}

// NewDispatcher wires a Dispatcher from the invocation-wide Config.
func NewDispatcher(cfg *Config, out, errOut io.Writer, opts ...DispatcherOption) (*Dispatcher, error) {
	drv, err := NewDriver(cfg)
	if err != nil {
		return nil, err
	}
	d := &Dispatcher{
		cfg:       cfg,
		driver:    drv,
		reporter:  NewReporter(cfg),
		escalator: NewEscalator(cfg.Platform, cfg.NonInteractive),
		render:    plainRenderer(),
		out:       out,
		errOut:    errOut,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dispatch runs one command and returns the process exit code. Errors
// are printed with their taxonomy tag and the native diagnostic
// preserved verbatim.
func (d *Dispatcher) Dispatch(ctx context.Context, command string, opts DispatchOptions) int {
	if NeedsElevation(command, d.cfg.Context) {
		if err := d.escalator.EnsureElevated(ctx, command); err != nil {
			return d.fail(err)
		}
	}

	var err error
	switch command {
	case "install":
		err = d.driver.Install(ctx, opts.Force)
	case "uninstall":
		err = d.driver.Uninstall(ctx)
	case "reinstall":
		err = d.reinstall(ctx, opts)
	case "start":
		err = d.driver.Start(ctx)
	case "stop":
		err = d.driver.Stop(ctx)
	case "restart":
		err = d.driver.Restart(ctx)
	case "status":
		err = d.status(ctx)
	case "logs":
		err = d.logs(ctx, opts.TailLines)
	case "follow":
		err = d.follow(ctx)
	case "validate":
		err = d.validate(ctx)
	default:
		fmt.Fprintf(d.errOut, "unknown command %q\n", command)
		return ExitUsage
	}

	// repeated install/uninstall are idempotent no-ops; start, stop,
	// and restart on a missing service stay hard failures and report
	// through the failure path only
	if (command == "install" || command == "uninstall") &&
		(errors.Is(err, ErrAlreadyInstalled) || errors.Is(err, ErrNotInstalled)) {
		fmt.Fprintf(d.errOut, "%s: nothing to do (%v)\n", command, err)
		return ExitOK
	}
	if err != nil {
		return d.fail(err)
	}
	return ExitOK
}

// reinstall is uninstall-then-install. A nothing-to-uninstall result
// must not abort the install half.
func (d *Dispatcher) reinstall(ctx context.Context, opts DispatchOptions) error {
	if err := d.driver.Uninstall(ctx); err != nil && !errors.Is(err, ErrNotInstalled) {
		return err
	}
	return d.driver.Install(ctx, opts.Force)
}

func (d *Dispatcher) status(ctx context.Context) error {
	st, err := d.driver.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(d.out, d.render.Status(st))

	if st.State == StateRunning {
		lines, err := d.reporter.Tail(ctx, 5)
		if err == nil && len(lines) > 0 {
			fmt.Fprintln(d.out, "recent log lines:")
			for _, line := range lines {
				fmt.Fprintf(d.out, "  %s\n", d.render.LogLine(line))
			}
		}
	}
	return nil
}

func (d *Dispatcher) logs(ctx context.Context, n int) error {
	lines, err := d.reporter.Tail(ctx, n)
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Fprintln(d.out, d.render.LogLine(line))
	}
	return nil
}

// follow streams until the context is cancelled (Ctrl-C). It never
// touches service state, so interruption is always clean.
func (d *Dispatcher) follow(ctx context.Context) error {
	ch, cleanup, err := d.reporter.Follow(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = cleanup() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-ch:
			if !ok {
				return nil
			}
			fmt.Fprintln(d.out, d.render.LogLine(line))
		}
	}
}

func (d *Dispatcher) validate(ctx context.Context) error {
	violations := d.driver.Validate(ctx)
	fmt.Fprintln(d.out, d.render.Violations(violations))
	if len(violations) == 0 {
		return nil
	}
	return (&ValidationError{Violations: violations}).Err()
}

// fail reports err with its taxonomy tag and returns the mapped exit
// code.
func (d *Dispatcher) fail(err error) int {
	slog.Debug("command failed", "err", err)
	var lerr *LifecycleError
	if errors.As(err, &lerr) {
		fmt.Fprintf(d.errOut, "%s\n", lerr)
	} else {
		fmt.Fprintf(d.errOut, "%s: %v\n", Tag(err), err)
	}
	return ExitCode(err)
}
