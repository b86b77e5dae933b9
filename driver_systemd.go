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

// driverSystemd manages the daemon through systemctl/journalctl. It is
// not build-tagged: the driver only ever runs command strings through
// its runner, so unit tests exercise it from any host with a fake
// runner.
type driverSystemd struct {
	cfg *Config
	run runner
}

func newDriverSystemd(cfg *Config, run runner) *driverSystemd {
	return &driverSystemd{cfg: cfg, run: run}
}

// systemctlArgs prefixes --user in the user context.
func (d *driverSystemd) systemctlArgs(args ...string) []string {
	if d.cfg.Context == ContextUser {
		return append([]string{"--user"}, args...)
	}
	return args
}

func (d *driverSystemd) systemctl(ctx context.Context, args ...string) (string, error) {
	return d.run.run(ctx, "systemctl", d.systemctlArgs(args...)...)
}

func (d *driverSystemd) unitName() string {
	return d.cfg.Descriptor.Name + ".service"
}

// Install implements Driver.
func (d *driverSystemd) Install(ctx context.Context, force bool) error {
	st, err := d.Status(ctx)
	if err == nil && st.State != StateNotInstalled {
		if !force {
			return opErr("install", "", fmt.Errorf("%w: unit %s exists", ErrAlreadyInstalled, d.unitName()))
		}
		slog.Warn("force install: removing existing registration", "unit", d.unitName())
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

	native, err := Generate(d.cfg.Descriptor, PlatformLinux, d.cfg.Paths)
	if err != nil {
		return opErr("install", "", err)
	}
	if err := native.Write(); err != nil {
		return opErr("install", "", fmt.Errorf("%w: %v", ErrDescriptorGeneration, err))
	}

	if out, err := d.systemctl(ctx, "daemon-reload"); err != nil {
		return opErr("install", out, err)
	}
	if out, err := d.systemctl(ctx, "enable", d.unitName()); err != nil {
		return opErr("install", out, err)
	}

	slog.Info("installed systemd unit", "path", native.Path, "context", d.cfg.Context)
	return d.Start(ctx)
}

// Uninstall implements Driver.
func (d *driverSystemd) Uninstall(ctx context.Context) error {
	st, err := d.Status(ctx)
	if err == nil && st.State == StateNotInstalled {
		return opErr("uninstall", "", fmt.Errorf("%w: unit %s", ErrNotInstalled, d.unitName()))
	}

	// already-stopped is fine; a hard stop failure is not
	if err := d.Stop(ctx); err != nil && !errors.Is(err, ErrTransitionTimeout) {
		var st Status
		if st, _ = d.Status(ctx); st.State == StateRunning {
			return err
		}
	}

	if _, err := d.systemctl(ctx, "disable", d.unitName()); err != nil {
		slog.Debug("disable failed, continuing", "err", err)
	}
	if err := removeDescriptor(d.cfg.Paths.DescriptorPath); err != nil {
		return opErr("uninstall", "", err)
	}
	if out, err := d.systemctl(ctx, "daemon-reload"); err != nil {
		return opErr("uninstall", out, err)
	}

	slog.Info("uninstalled systemd unit", "unit", d.unitName())
	return nil
}

// Start implements Driver.
func (d *driverSystemd) Start(ctx context.Context) error {
	if out, err := d.systemctl(ctx, "start", d.unitName()); err != nil {
		return opErr("start", out, err)
	}
	_, err := waitForState(ctx, d.Status, StateRunning, d.cfg.StartTimeout, d.cfg.PollInterval)
	return opErr("start", "", err)
}

// Stop implements Driver.
func (d *driverSystemd) Stop(ctx context.Context) error {
	if out, err := d.systemctl(ctx, "stop", d.unitName()); err != nil {
		// stopping an inactive unit is a no-op, not an error
		if exitCodeOf(err) != 5 {
			return opErr("stop", out, err)
		}
	}
	_, err := waitForState(ctx, d.Status, StateStopped, d.cfg.StopTimeout, d.cfg.PollInterval)
	return opErr("stop", "", err)
}

// Restart implements Driver. The delay between stop and start is taken
// unconditionally so the OS releases the daemon's listening socket.
func (d *driverSystemd) Restart(ctx context.Context) error {
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

// Status implements Driver. State is derived fresh from systemctl show
// on every call.
func (d *driverSystemd) Status(ctx context.Context) (Status, error) {
	out, err := d.systemctl(ctx, "show", "--no-page", d.unitName())
	if err != nil {
		return Status{State: StateUnknown}, opErr("status", out, err)
	}

	st := parseSystemctlShow(out)
	if st.State == StateRunning && st.PID > 0 {
		enrichProcess(&st)
	}

	if enabled, err := d.systemctl(ctx, "is-enabled", d.unitName()); err == nil {
		st.Enabled = strings.TrimSpace(enabled) == "enabled"
	}
	return st, nil
}

// Validate implements Driver.
func (d *driverSystemd) Validate(ctx context.Context) []Violation {
	var verr ValidationError

	validateCommon(d.cfg, PlatformLinux, &verr)

	if _, err := os.Stat(d.cfg.Paths.DescriptorPath); err == nil {
		// syntactic check with systemd's own validator when available
		out, err := d.run.run(ctx, "systemd-analyze", "verify", d.cfg.Paths.DescriptorPath)
		if err != nil && !errors.Is(err, exec.ErrNotFound) {
			verr.Add("descriptor-syntax", "systemd-analyze verify failed: %v %s", err, out)
		}
	}

	out, err := d.systemctl(ctx, "show", "--no-page", d.unitName())
	if err != nil {
		verr.Add("registration", "systemctl show failed: %v", err)
	} else {
		st := parseSystemctlShow(out)
		if st.State == StateNotInstalled {
			verr.Add("registration", "unit %s is not loaded", d.unitName())
		} else {
			if enabled, err := d.systemctl(ctx, "is-enabled", d.unitName()); err != nil || strings.TrimSpace(enabled) != "enabled" {
				verr.Add("boot-enable", "unit %s is not enabled for start at boot", d.unitName())
			}
		}
	}

	return verr.Violations
}

// parseSystemctlShow normalizes `systemctl show` key=value output into
// a Status. LoadState distinguishes not-installed from stopped;
// ActiveState/SubState and Result distinguish running, failed, and
// stopped.
func parseSystemctlShow(out string) Status {
	props := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		if key, value, ok := strings.Cut(line, "="); ok {
			props[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
	}

	st := Status{State: StateUnknown}
	active := props["ActiveState"]
	sub := props["SubState"]
	st.Detail = active
	if sub != "" {
		st.Detail = active + "/" + sub
	}

	if load := props["LoadState"]; load == "not-found" || load == "" {
		st.State = StateNotInstalled
		return st
	}

	switch active {
	case "active", "activating", "reloading":
		st.State = StateRunning
	case "failed":
		st.State = StateFailed
	case "inactive", "deactivating":
		st.State = StateStopped
	}

	if pid, err := strconv.Atoi(props["MainPID"]); err == nil && pid > 0 {
		st.PID = pid
	}
	return st
}
