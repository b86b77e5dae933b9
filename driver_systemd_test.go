package servicectl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeRunner substitutes canned output for native commands and records
// every invocation.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []string
	handler func(name string, args []string) (string, error)
}

func (f *fakeRunner) run(_ context.Context, name string, args ...string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name+" "+strings.Join(args, " "))
	f.mu.Unlock()
	if f.handler == nil {
		return "", nil
	}
	return f.handler(name, args)
}

// callIndex returns the index of the first recorded call containing
// fragment, or -1.
func (f *fakeRunner) callIndex(fragment string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.calls {
		if strings.Contains(c, fragment) {
			return i
		}
	}
	return -1
}

// testConfig builds a Config rooted in a temp dir with fast timeouts.
func testConfig(t *testing.T, platform Platform) *Config {
	t.Helper()
	dir := t.TempDir()
	paths := PathSet{
		BinaryDir:      filepath.Join(dir, "bin"),
		ConfigDir:      filepath.Join(dir, "config"),
		StateDir:       filepath.Join(dir, "state"),
		LogDir:         filepath.Join(dir, "log"),
		DescriptorPath: filepath.Join(dir, "descriptors", "wsd.service"),
	}
	cfg := &Config{
		Platform:     platform,
		Context:      ContextUser,
		Paths:        paths,
		StartTimeout: 2 * time.Second,
		StopTimeout:  2 * time.Second,
		RestartDelay: 10 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
	}
	cfg.Descriptor = DefaultDescriptor(platform, ContextUser, paths, 0)
	return cfg
}

// writeFakeExecutable drops an executable stub at the descriptor's
// executable path.
func writeFakeExecutable(t *testing.T, cfg *Config) {
	t.Helper()
	if err := os.MkdirAll(cfg.Paths.BinaryDir, 0o755); err != nil {
		t.Fatalf("creating binary dir: %v", err)
	}
	if err := os.WriteFile(cfg.Descriptor.ExecutablePath, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("writing fake executable: %v", err)
	}
}

// realExitError produces an *exec.ExitError with the given code by
// running a real shell.
func realExitError(t *testing.T, code int) error {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs sh")
	}
	err := exec.Command("sh", "-c", fmt.Sprintf("exit %d", code)).Run()
	if err == nil {
		t.Fatal("expected command to fail")
	}
	return err
}

func showNotFound() string {
	return "LoadState=not-found\nActiveState=inactive\nSubState=dead\n"
}

func showActive() string {
	return "LoadState=loaded\nActiveState=active\nSubState=running\nMainPID=0\n"
}

func showInactive() string {
	return "LoadState=loaded\nActiveState=inactive\nSubState=dead\n"
}

func TestSystemdInstallFlow(t *testing.T) {
	cfg := testConfig(t, PlatformLinux)
	writeFakeExecutable(t, cfg)

	var mu sync.Mutex
	started := false
	fr := &fakeRunner{}
	fr.handler = func(name string, args []string) (string, error) {
		cmd := strings.Join(args, " ")
		mu.Lock()
		defer mu.Unlock()
		switch {
		case strings.Contains(cmd, "is-enabled"):
			return "enabled\n", nil
		case strings.Contains(cmd, "show"):
			if started {
				return showActive(), nil
			}
			return showNotFound(), nil
		case strings.Contains(cmd, "start"):
			started = true
			return "", nil
		default:
			return "", nil
		}
	}

	d := newDriverSystemd(cfg, fr)
	if err := d.Install(context.Background(), false); err != nil {
		t.Fatalf("Install failed: %v", err)
	}

	// registration order: write descriptor, reload, enable, start
	reload := fr.callIndex("daemon-reload")
	enable := fr.callIndex("enable wsd.service")
	start := fr.callIndex("start wsd.service")
	if reload < 0 || enable < 0 || start < 0 {
		t.Fatalf("missing systemctl call, got %v", fr.calls)
	}
	if !(reload < enable && enable < start) {
		t.Errorf("call order wrong: reload=%d enable=%d start=%d", reload, enable, start)
	}

	// user context goes through systemctl --user
	if fr.callIndex("--user") < 0 {
		t.Error("user context did not pass --user")
	}

	data, err := os.ReadFile(cfg.Paths.DescriptorPath)
	if err != nil {
		t.Fatalf("descriptor not written: %v", err)
	}
	if !strings.Contains(string(data), "[Unit]") {
		t.Errorf("descriptor content wrong: %q", data)
	}

	// provisioning artifacts
	for _, p := range []string{
		cfg.Paths.ConfigFilePath(),
		cfg.Paths.CredentialsTemplatePath(),
		cfg.Paths.PrivateKeyPath(),
		cfg.Paths.PublicKeyPath(),
	} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("provisioned file missing: %s", p)
		}
	}
}

func TestSystemdInstallAlreadyInstalled(t *testing.T) {
	cfg := testConfig(t, PlatformLinux)
	fr := &fakeRunner{}
	fr.handler = func(name string, args []string) (string, error) {
		if strings.Contains(strings.Join(args, " "), "is-enabled") {
			return "enabled\n", nil
		}
		return showActive(), nil
	}

	d := newDriverSystemd(cfg, fr)
	err := d.Install(context.Background(), false)
	if !errors.Is(err, ErrAlreadyInstalled) {
		t.Fatalf("expected ErrAlreadyInstalled, got %v", err)
	}
	if fr.callIndex("enable wsd.service") >= 0 {
		t.Error("install must not enable after refusing")
	}
}

func TestSystemdForceInstallReplacesExisting(t *testing.T) {
	cfg := testConfig(t, PlatformLinux)
	writeFakeExecutable(t, cfg)

	var mu sync.Mutex
	active := true
	fr := &fakeRunner{}
	fr.handler = func(name string, args []string) (string, error) {
		cmd := strings.Join(args, " ")
		mu.Lock()
		defer mu.Unlock()
		switch {
		case strings.Contains(cmd, "is-enabled"):
			return "enabled\n", nil
		case strings.Contains(cmd, "show"):
			if active {
				return showActive(), nil
			}
			return showInactive(), nil
		case strings.Contains(cmd, "stop"):
			active = false
			return "", nil
		case strings.Contains(cmd, "start"):
			active = true
			return "", nil
		default:
			return "", nil
		}
	}

	d := newDriverSystemd(cfg, fr)
	if err := d.Install(context.Background(), true); err != nil {
		t.Fatalf("force install failed: %v", err)
	}

	stop := fr.callIndex("stop wsd.service")
	disable := fr.callIndex("disable wsd.service")
	start := fr.callIndex("start wsd.service")
	if stop < 0 || disable < 0 || start < 0 {
		t.Fatalf("missing call, got %v", fr.calls)
	}
	if !(stop < start && disable < start) {
		t.Error("old registration must be removed before the new start")
	}
}

func TestSystemdUninstallNotInstalled(t *testing.T) {
	cfg := testConfig(t, PlatformLinux)
	fr := &fakeRunner{}
	fr.handler = func(name string, args []string) (string, error) {
		if strings.Contains(strings.Join(args, " "), "show") {
			return showNotFound(), nil
		}
		return "", nil
	}

	d := newDriverSystemd(cfg, fr)
	if err := d.Uninstall(context.Background()); !errors.Is(err, ErrNotInstalled) {
		t.Errorf("expected ErrNotInstalled, got %v", err)
	}
}

func TestSystemdStopInactiveIsNoOp(t *testing.T) {
	cfg := testConfig(t, PlatformLinux)
	exitFive := realExitError(t, 5)

	fr := &fakeRunner{}
	fr.handler = func(name string, args []string) (string, error) {
		cmd := strings.Join(args, " ")
		switch {
		case strings.Contains(cmd, "is-enabled"):
			return "disabled\n", nil
		case strings.Contains(cmd, "show"):
			return showInactive(), nil
		case strings.Contains(cmd, "stop"):
			return "", &nativeError{cmd: "systemctl stop", stderr: "wsd.service not loaded", err: exitFive}
		default:
			return "", nil
		}
	}

	d := newDriverSystemd(cfg, fr)
	if err := d.Stop(context.Background()); err != nil {
		t.Errorf("stopping an inactive unit should succeed, got %v", err)
	}
}

func TestSystemdStopHardFailure(t *testing.T) {
	cfg := testConfig(t, PlatformLinux)
	exitOne := realExitError(t, 1)

	fr := &fakeRunner{}
	fr.handler = func(name string, args []string) (string, error) {
		cmd := strings.Join(args, " ")
		if strings.Contains(cmd, "stop") {
			return "", &nativeError{cmd: "systemctl stop", stderr: "Access denied", err: exitOne}
		}
		return showActive(), nil
	}

	d := newDriverSystemd(cfg, fr)
	err := d.Stop(context.Background())
	if err == nil {
		t.Fatal("expected stop to fail")
	}
	// the native stderr must survive to the rendered message
	if !strings.Contains(err.Error(), "Access denied") {
		t.Errorf("native diagnostic lost: %v", err)
	}
}

func TestSystemdStartTimeout(t *testing.T) {
	cfg := testConfig(t, PlatformLinux)
	cfg.StartTimeout = 50 * time.Millisecond

	fr := &fakeRunner{}
	fr.handler = func(name string, args []string) (string, error) {
		cmd := strings.Join(args, " ")
		if strings.Contains(cmd, "is-enabled") {
			return "enabled\n", nil
		}
		if strings.Contains(cmd, "show") {
			return showInactive(), nil
		}
		return "", nil
	}

	d := newDriverSystemd(cfg, fr)
	err := d.Start(context.Background())
	if !errors.Is(err, ErrTransitionTimeout) {
		t.Errorf("expected ErrTransitionTimeout, got %v", err)
	}
}

func TestSystemdStatus(t *testing.T) {
	tests := []struct {
		name        string
		show        string
		enabled     string
		wantState   ServiceState
		wantPID     int
		wantEnabled bool
	}{
		{
			name:        "running",
			show:        "LoadState=loaded\nActiveState=active\nSubState=running\nMainPID=0\n",
			enabled:     "enabled\n",
			wantState:   StateRunning,
			wantEnabled: true,
		},
		{
			name:      "stopped_disabled",
			show:      showInactive(),
			enabled:   "disabled\n",
			wantState: StateStopped,
		},
		{
			name:      "failed",
			show:      "LoadState=loaded\nActiveState=failed\nSubState=failed\n",
			enabled:   "enabled\n",
			wantState: StateFailed,
			// is-enabled succeeded
			wantEnabled: true,
		},
		{
			name:      "not_installed",
			show:      showNotFound(),
			enabled:   "",
			wantState: StateNotInstalled,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig(t, PlatformLinux)
			fr := &fakeRunner{}
			fr.handler = func(name string, args []string) (string, error) {
				if strings.Contains(strings.Join(args, " "), "is-enabled") {
					return tc.enabled, nil
				}
				return tc.show, nil
			}

			d := newDriverSystemd(cfg, fr)
			st, err := d.Status(context.Background())
			if err != nil {
				t.Fatalf("Status failed: %v", err)
			}
			if st.State != tc.wantState {
				t.Errorf("State = %v, want %v", st.State, tc.wantState)
			}
			if st.Enabled != tc.wantEnabled {
				t.Errorf("Enabled = %v, want %v", st.Enabled, tc.wantEnabled)
			}
		})
	}
}

func TestSystemdSystemContextOmitsUserFlag(t *testing.T) {
	cfg := testConfig(t, PlatformLinux)
	cfg.Context = ContextSystem

	d := newDriverSystemd(cfg, &fakeRunner{})
	args := d.systemctlArgs("start", "wsd.service")
	if args[0] == "--user" {
		t.Error("system context must not pass --user")
	}

	cfg.Context = ContextUser
	args = d.systemctlArgs("start", "wsd.service")
	if args[0] != "--user" {
		t.Errorf("user context args = %v, want --user prefix", args)
	}
}

func TestParseSystemctlShow(t *testing.T) {
	tests := []struct {
		name       string
		out        string
		wantState  ServiceState
		wantPID    int
		wantDetail string
	}{
		{
			name:       "active_running",
			out:        "LoadState=loaded\nActiveState=active\nSubState=running\nMainPID=4321\n",
			wantState:  StateRunning,
			wantPID:    4321,
			wantDetail: "active/running",
		},
		{
			name:      "activating",
			out:       "LoadState=loaded\nActiveState=activating\nSubState=start\n",
			wantState: StateRunning,
		},
		{
			name:       "inactive",
			out:        "LoadState=loaded\nActiveState=inactive\nSubState=dead\nMainPID=0\n",
			wantState:  StateStopped,
			wantDetail: "inactive/dead",
		},
		{
			name:       "failed",
			out:        "LoadState=loaded\nActiveState=failed\nSubState=failed\nMainPID=0\n",
			wantState:  StateFailed,
			wantDetail: "failed/failed",
		},
		{
			name:      "not_found",
			out:       "LoadState=not-found\nActiveState=inactive\nSubState=dead\n",
			wantState: StateNotInstalled,
		},
		{
			name:      "empty",
			out:       "",
			wantState: StateNotInstalled,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := parseSystemctlShow(tc.out)
			if st.State != tc.wantState {
				t.Errorf("State = %v, want %v", st.State, tc.wantState)
			}
			if st.PID != tc.wantPID {
				t.Errorf("PID = %d, want %d", st.PID, tc.wantPID)
			}
			if tc.wantDetail != "" && st.Detail != tc.wantDetail {
				t.Errorf("Detail = %q, want %q", st.Detail, tc.wantDetail)
			}
		})
	}
}
