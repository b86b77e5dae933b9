package servicectl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// driverLaunchd manages the daemon through launchctl. Like the systemd
// driver it is not build-tagged; everything native goes through the
// runner so tests can drive it anywhere.
//
// Stopped vs not-installed: launchd has no registry apart from the
// loaded job list, so the plist file defines "installed". A present
// plist without a loaded job is installed-stopped; no plist is
// not-installed.
type driverLaunchd struct {
	cfg *Config
	run runner
	uid int
}

func newDriverLaunchd(cfg *Config, run runner) *driverLaunchd {
	return &driverLaunchd{cfg: cfg, run: run, uid: os.Getuid()}
}

// domain is the launchd domain target for bootstrap/bootout.
func (d *driverLaunchd) domain() string {
	if d.cfg.Context == ContextSystem {
		return "system"
	}
	return fmt.Sprintf("gui/%d", d.uid)
}

func (d *driverLaunchd) domainTarget() string {
	return d.domain() + "/" + d.cfg.Descriptor.Label
}

// Install implements Driver.
func (d *driverLaunchd) Install(ctx context.Context, force bool) error {
	st, err := d.Status(ctx)
	if err == nil && st.State != StateNotInstalled {
		if !force {
			return opErr("install", "", fmt.Errorf("%w: %s exists", ErrAlreadyInstalled, d.cfg.Paths.DescriptorPath))
		}
		slog.Warn("force install: removing existing registration", "label", d.cfg.Descriptor.Label)
		if err := d.Uninstall(ctx); err != nil && !errors.Is(err, ErrNotInstalled) {
			return err
		}
	}

	if err := requireExecutable(d.cfg.Descriptor.ExecutablePath); err != nil {
		return opErr("install", "", err)
	}

	if err := Provision(d.cfg, os.Stdout); err != nil {
		return opErr("install", "", err)
	}

	native, err := Generate(d.cfg.Descriptor, PlatformDarwin, d.cfg.Paths)
	if err != nil {
		return opErr("install", "", err)
	}
	if err := native.Write(); err != nil {
		return opErr("install", "", fmt.Errorf("%w: %v", ErrDescriptorGeneration, err))
	}

	slog.Info("installed launchd plist", "path", native.Path, "domain", d.domain())
	return d.Start(ctx)
}

// Uninstall implements Driver.
func (d *driverLaunchd) Uninstall(ctx context.Context) error {
	if _, err := os.Stat(d.cfg.Paths.DescriptorPath); os.IsNotExist(err) {
		return opErr("uninstall", "", fmt.Errorf("%w: %s", ErrNotInstalled, d.cfg.Descriptor.Label))
	}

	if out, err := d.run.run(ctx, "launchctl", "bootout", d.domainTarget()); err != nil {
		// bootout of a job that is not loaded is a no-op for us
		if !isLaunchdNotLoaded(err) {
			return opErr("uninstall", out, err)
		}
	}

	if err := removeDescriptor(d.cfg.Paths.DescriptorPath); err != nil {
		return opErr("uninstall", "", err)
	}

	slog.Info("uninstalled launchd job", "label", d.cfg.Descriptor.Label)
	return nil
}

// Start implements Driver. Bootstrap loads the job (RunAtLoad starts
// it); kickstart covers the case where the job was loaded but idle.
func (d *driverLaunchd) Start(ctx context.Context) error {
	if out, err := d.run.run(ctx, "launchctl", "bootstrap", d.domain(), d.cfg.Paths.DescriptorPath); err != nil {
		if !isLaunchdAlreadyLoaded(err) {
			return opErr("start", out, err)
		}
		if out, err := d.run.run(ctx, "launchctl", "kickstart", d.domainTarget()); err != nil {
			return opErr("start", out, err)
		}
	}
	_, err := waitForState(ctx, d.Status, StateRunning, d.cfg.StartTimeout, d.cfg.PollInterval)
	return opErr("start", "", err)
}

// Stop implements Driver. The job is unloaded rather than signalled:
// KeepAlive would immediately revive a signalled process.
func (d *driverLaunchd) Stop(ctx context.Context) error {
	if out, err := d.run.run(ctx, "launchctl", "bootout", d.domainTarget()); err != nil {
		if !isLaunchdNotLoaded(err) {
			return opErr("stop", out, err)
		}
	}
	_, err := waitForState(ctx, d.Status, StateStopped, d.cfg.StopTimeout, d.cfg.PollInterval)
	return opErr("stop", "", err)
}

// Restart implements Driver.
func (d *driverLaunchd) Restart(ctx context.Context) error {
	if err := d.Stop(ctx); err != nil && !errors.Is(err, ErrNotInstalled) {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d.cfg.RestartDelay):
	}
	return d.Start(ctx)
}

// Status implements Driver.
func (d *driverLaunchd) Status(ctx context.Context) (Status, error) {
	if _, err := os.Stat(d.cfg.Paths.DescriptorPath); os.IsNotExist(err) {
		return Status{State: StateNotInstalled}, nil
	}

	out, err := d.run.run(ctx, "launchctl", "list")
	if err != nil {
		return Status{State: StateUnknown}, opErr("status", out, err)
	}

	entry, found := findLaunchdEntry(out, d.cfg.Descriptor.Label)
	if !found {
		return Status{State: StateStopped, Detail: "not loaded"}, nil
	}

	st := Status{Enabled: true}
	switch {
	case entry.pid > 0:
		st.State = StateRunning
		st.PID = entry.pid
		st.Detail = "loaded"
		enrichProcess(&st)
	case entry.status != 0:
		st.State = StateFailed
		st.Detail = fmt.Sprintf("last exit status %d", entry.status)
	default:
		st.State = StateStopped
		st.Detail = "loaded, not running"
	}
	return st, nil
}

// Validate implements Driver.
func (d *driverLaunchd) Validate(ctx context.Context) []Violation {
	var verr ValidationError

	validateCommon(d.cfg, PlatformDarwin, &verr)

	if _, err := os.Stat(d.cfg.Paths.DescriptorPath); err == nil {
		out, err := d.run.run(ctx, "plutil", "-lint", d.cfg.Paths.DescriptorPath)
		if err != nil && !errors.Is(err, exec.ErrNotFound) {
			verr.Add("descriptor-syntax", "plutil -lint failed: %v %s", err, out)
		}
		if out, err := d.run.run(ctx, "launchctl", "list"); err == nil {
			if _, found := findLaunchdEntry(out, d.cfg.Descriptor.Label); !found {
				verr.Add("registration", "job %s is not loaded", d.cfg.Descriptor.Label)
			}
		}
	}

	return verr.Violations
}

// launchdEntry is one parsed line of `launchctl list` output.
type launchdEntry struct {
	pid    int
	status int
	label  string
}

// findLaunchdEntry scans `launchctl list` output (PID, last exit
// status, label; dashes for unset) for the given label.
func findLaunchdEntry(out, label string) (launchdEntry, bool) {
	for i, line := range strings.Split(out, "\n") {
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[2] != label {
			continue
		}

		entry := launchdEntry{label: label}
		if fields[0] != "-" {
			entry.pid, _ = strconv.Atoi(fields[0])
		}
		if fields[1] != "-" {
			entry.status, _ = strconv.Atoi(fields[1])
		}
		return entry, true
	}
	return launchdEntry{}, false
}

// launchctl bootstrap of an already-loaded job fails with EEXIST (37)
// or prints "already bootstrapped".
func isLaunchdAlreadyLoaded(err error) bool {
	code := exitCodeOf(err)
	return code == 37 || code == 17 || strings.Contains(err.Error(), "already bootstrapped")
}

// launchctl bootout of a job that is not loaded reports ESRCH (3) or
// "No such process".
func isLaunchdNotLoaded(err error) bool {
	return exitCodeOf(err) == 3 || strings.Contains(err.Error(), "No such process") ||
		strings.Contains(err.Error(), "Could not find service")
}
