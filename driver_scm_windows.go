//go:build windows

package servicectl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/eventlog"
	"golang.org/x/sys/windows/svc/mgr"
)

// driverSCM manages the daemon through the Windows Service Control
// Manager API directly; there is no native tool to shell out to. Each
// operation opens a fresh SCM connection: the tool is short-lived and
// holding handles across operations buys nothing.
type driverSCM struct {
	cfg    *Config
	params *SCMParams
}

func newDriverSCM(cfg *Config) (Driver, error) {
	return &driverSCM{
		cfg:    cfg,
		params: SCMParamsFromDescriptor(&cfg.Descriptor),
	}, nil
}

func (d *driverSCM) connect() (*mgr.Mgr, error) {
	m, err := mgr.Connect()
	if err != nil {
		if errors.Is(err, windows.ERROR_ACCESS_DENIED) {
			return nil, fmt.Errorf("%w: opening service control manager", ErrInsufficientPrivilege)
		}
		return nil, fmt.Errorf("connecting to service control manager: %w", err)
	}
	return m, nil
}

// Install implements Driver.
func (d *driverSCM) Install(ctx context.Context, force bool) error {
	st, err := d.Status(ctx)
	if err == nil && st.State != StateNotInstalled {
		if !force {
			return opErr("install", "", fmt.Errorf("%w: service %s exists", ErrAlreadyInstalled, d.params.Name))
		}
		slog.Warn("force install: removing existing registration", "service", d.params.Name)
		if err := d.Uninstall(ctx); err != nil && !errors.Is(err, ErrNotInstalled) {
			return err
		}
	}

	if _, err := os.Stat(d.cfg.Descriptor.ExecutablePath); err != nil {
		return opErr("install", "", fmt.Errorf("%w: %s", ErrMissingExecutable, d.cfg.Descriptor.ExecutablePath))
	}

	if err := Provision(d.cfg, os.Stdout); err != nil {
		return opErr("install", "", err)
	}

	// Persist the registration snapshot for validate before touching
	// the SCM, same generate/write path the unix drivers use.
	native, err := Generate(d.cfg.Descriptor, PlatformWindows, d.cfg.Paths)
	if err != nil {
		return opErr("install", "", err)
	}
	if err := native.Write(); err != nil {
		return opErr("install", "", fmt.Errorf("%w: %v", ErrDescriptorGeneration, err))
	}

	m, err := d.connect()
	if err != nil {
		return opErr("install", "", err)
	}
	defer m.Disconnect()

	s, err := m.CreateService(d.params.Name, d.cfg.Descriptor.ExecutablePath, mgr.Config{
		DisplayName: d.params.DisplayName,
		Description: d.params.Description,
		StartType:   uint32(d.params.StartType),
	}, d.cfg.Descriptor.Arguments...)
	if err != nil {
		return opErr("install", err.Error(), fmt.Errorf("creating service: %w", err))
	}
	defer s.Close()

	actions := make([]mgr.RecoveryAction, 0, len(d.params.Recovery))
	for _, a := range d.params.Recovery {
		actions = append(actions, mgr.RecoveryAction{
			Type:  mgr.ServiceRestart,
			Delay: time.Duration(a.DelaySec) * time.Second,
		})
	}
	if err := s.SetRecoveryActions(actions, uint32(d.params.ResetPeriodSec)); err != nil {
		return opErr("install", err.Error(), fmt.Errorf("setting recovery actions: %w", err))
	}

	if err := eventlog.InstallAsEventCreate(EventLogSource, eventlog.Error|eventlog.Warning|eventlog.Info); err != nil {
		// an existing source from a previous install is fine
		slog.Debug("event log source registration", "err", err)
	}

	slog.Info("installed SCM service", "service", d.params.Name)
	return d.Start(ctx)
}

// Uninstall implements Driver.
func (d *driverSCM) Uninstall(ctx context.Context) error {
	m, err := d.connect()
	if err != nil {
		return opErr("uninstall", "", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(d.params.Name)
	if err != nil {
		return opErr("uninstall", "", fmt.Errorf("%w: service %s", ErrNotInstalled, d.params.Name))
	}
	defer s.Close()

	if err := d.Stop(ctx); err != nil && !errors.Is(err, ErrTransitionTimeout) {
		if st, _ := d.Status(ctx); st.State == StateRunning {
			return err
		}
	}

	if err := s.Delete(); err != nil {
		return opErr("uninstall", err.Error(), fmt.Errorf("deleting service: %w", err))
	}
	if err := eventlog.Remove(EventLogSource); err != nil {
		slog.Debug("event log source removal", "err", err)
	}
	if err := removeDescriptor(d.cfg.Paths.DescriptorPath); err != nil {
		return opErr("uninstall", "", err)
	}

	slog.Info("uninstalled SCM service", "service", d.params.Name)
	return nil
}

// Start implements Driver.
func (d *driverSCM) Start(ctx context.Context) error {
	m, err := d.connect()
	if err != nil {
		return opErr("start", "", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(d.params.Name)
	if err != nil {
		return opErr("start", "", fmt.Errorf("%w: service %s", ErrNotInstalled, d.params.Name))
	}
	defer s.Close()

	if err := s.Start(d.cfg.Descriptor.Arguments...); err != nil {
		if !errors.Is(err, windows.ERROR_SERVICE_ALREADY_RUNNING) {
			return opErr("start", err.Error(), fmt.Errorf("starting service: %w", err))
		}
	}

	_, err = waitForState(ctx, d.Status, StateRunning, d.cfg.StartTimeout, d.cfg.PollInterval)
	return opErr("start", "", err)
}

// Stop implements Driver.
func (d *driverSCM) Stop(ctx context.Context) error {
	m, err := d.connect()
	if err != nil {
		return opErr("stop", "", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(d.params.Name)
	if err != nil {
		return opErr("stop", "", fmt.Errorf("%w: service %s", ErrNotInstalled, d.params.Name))
	}
	defer s.Close()

	if _, err := s.Control(svc.Stop); err != nil {
		if !errors.Is(err, windows.ERROR_SERVICE_NOT_ACTIVE) {
			return opErr("stop", err.Error(), fmt.Errorf("stopping service: %w", err))
		}
	}

	_, err = waitForState(ctx, d.Status, StateStopped, d.cfg.StopTimeout, d.cfg.PollInterval)
	return opErr("stop", "", err)
}

// Restart implements Driver.
func (d *driverSCM) Restart(ctx context.Context) error {
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
func (d *driverSCM) Status(_ context.Context) (Status, error) {
	m, err := d.connect()
	if err != nil {
		return Status{State: StateUnknown}, opErr("status", "", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(d.params.Name)
	if err != nil {
		return Status{State: StateNotInstalled}, nil
	}
	defer s.Close()

	q, err := s.Query()
	if err != nil {
		return Status{State: StateUnknown}, opErr("status", err.Error(), err)
	}

	st := Status{Detail: scmStateName(q.State)}
	switch q.State {
	case svc.Running, svc.StartPending, svc.ContinuePending:
		st.State = StateRunning
		st.PID = int(q.ProcessId)
		enrichProcess(&st)
	case svc.Stopped:
		st.State = StateStopped
		if q.Win32ExitCode != 0 && q.Win32ExitCode != uint32(windows.ERROR_SERVICE_NEVER_STARTED) {
			st.State = StateFailed
			st.Detail = fmt.Sprintf("stopped, exit code %d", q.Win32ExitCode)
		}
	default:
		st.State = StateStopped
	}

	if c, err := s.Config(); err == nil {
		st.Enabled = c.StartType == uint32(SCMStartAutomatic)
	}
	return st, nil
}

// Validate implements Driver.
func (d *driverSCM) Validate(ctx context.Context) []Violation {
	var verr ValidationError

	validateCommon(d.cfg, PlatformWindows, &verr)

	m, err := d.connect()
	if err != nil {
		verr.Add("registration", "cannot open service control manager: %v", err)
		return verr.Violations
	}
	defer m.Disconnect()

	s, err := m.OpenService(d.params.Name)
	if err != nil {
		verr.Add("registration", "service %s is not registered", d.params.Name)
		return verr.Violations
	}
	defer s.Close()

	c, err := s.Config()
	if err != nil {
		verr.Add("registration", "querying service config: %v", err)
		return verr.Violations
	}
	if c.StartType != uint32(SCMStartAutomatic) {
		verr.Add("boot-enable", "service %s start type is not Automatic", d.params.Name)
	}
	if c.DisplayName != d.params.DisplayName {
		verr.Add("descriptor-drift", "display name %q differs from descriptor %q", c.DisplayName, d.params.DisplayName)
	}

	return verr.Violations
}

func scmStateName(s svc.State) string {
	switch s {
	case svc.Stopped:
		return "stopped"
	case svc.StartPending:
		return "start pending"
	case svc.StopPending:
		return "stop pending"
	case svc.Running:
		return "running"
	case svc.ContinuePending:
		return "continue pending"
	case svc.PausePending:
		return "pause pending"
	case svc.Paused:
		return "paused"
	default:
		return "unknown"
	}
}
