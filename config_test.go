package servicectl

import (
	"errors"
	"testing"
	"time"
)

func TestConfigOptions(t *testing.T) {
	cfg := testConfig(t, PlatformLinux)

	WithDaemonPort(9001)(cfg)
	if got := cfg.Descriptor.Environment[EnvPort]; got != "9001" {
		t.Errorf("port env = %q, want 9001", got)
	}

	WithContext(ContextSystem)(cfg)
	if cfg.Context != ContextSystem {
		t.Errorf("Context = %v", cfg.Context)
	}

	WithTimeouts(time.Minute, 45*time.Second)(cfg)
	if cfg.StartTimeout != time.Minute || cfg.StopTimeout != 45*time.Second {
		t.Errorf("timeouts = %v/%v", cfg.StartTimeout, cfg.StopTimeout)
	}

	// zero values leave the existing timeouts alone
	WithTimeouts(0, 0)(cfg)
	if cfg.StartTimeout != time.Minute || cfg.StopTimeout != 45*time.Second {
		t.Errorf("zero override changed timeouts to %v/%v", cfg.StartTimeout, cfg.StopTimeout)
	}

	if cfg.NonInteractive {
		t.Error("NonInteractive should default to false")
	}
	WithNonInteractive()(cfg)
	if !cfg.NonInteractive {
		t.Error("WithNonInteractive not applied")
	}
}

func TestWithDaemonPortBeforeDescriptorBuilt(t *testing.T) {
	// NewConfig applies options once before the descriptor exists, so
	// the option must tolerate a nil environment map
	var cfg Config
	WithDaemonPort(9001)(&cfg)
	if got := cfg.Descriptor.Environment[EnvPort]; got != "9001" {
		t.Errorf("port env = %q, want 9001", got)
	}
}

func TestNewConfigWithDaemonPort(t *testing.T) {
	cfg, err := NewConfig(WithDaemonPort(9001), WithContext(ContextUser), WithNonInteractive())
	if err != nil {
		if errors.Is(err, ErrUnsupportedPlatform) {
			t.Skipf("no supported service manager on this host: %v", err)
		}
		t.Fatalf("NewConfig failed: %v", err)
	}
	if got := cfg.Descriptor.Environment[EnvPort]; got != "9001" {
		t.Errorf("port env = %q, want 9001", got)
	}
	if cfg.Context != ContextUser {
		t.Errorf("Context = %v, want user", cfg.Context)
	}
	if !cfg.NonInteractive {
		t.Error("NonInteractive not applied")
	}
}

func TestHostPathEnvDefaults(t *testing.T) {
	t.Setenv("PROGRAMDATA", "")
	t.Setenv("PROGRAMFILES", "")

	env, err := hostPathEnv()
	if err != nil {
		t.Fatalf("hostPathEnv failed: %v", err)
	}
	if env.Home == "" {
		t.Error("Home is empty")
	}
	if env.ProgramData != `C:\ProgramData` {
		t.Errorf("ProgramData default = %q", env.ProgramData)
	}
	if env.ProgramFiles != `C:\Program Files` {
		t.Errorf("ProgramFiles default = %q", env.ProgramFiles)
	}
}
