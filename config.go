package servicectl

import (
	"fmt"
	"os"
	"time"
)

// Config is the invocation-wide configuration: platform, installation
// context, path set, and the daemon descriptor. It is built exactly
// once at process start and passed explicitly into every component;
// no component re-detects the platform or recomputes paths.
type Config struct {
	// Platform is the detected native service manager family
	Platform Platform
	// Context is the installation context (user or system)
	Context InstallContext
	// Paths is the derived path set for (Platform, Context)
	Paths PathSet
	// Descriptor is the logical service definition
	Descriptor ServiceDescriptor

	// StartTimeout bounds waiting for a confirmed running state
	StartTimeout time.Duration
	// StopTimeout bounds waiting for a confirmed stopped state
	StopTimeout time.Duration
	// RestartDelay separates stop and start during restart
	RestartDelay time.Duration
	// PollInterval is the sleep between state queries while waiting
	PollInterval time.Duration

	// NonInteractive turns any would-be elevation prompt into an
	// InsufficientPrivilege failure
	NonInteractive bool
}

// ConfigOption overrides a Config field at construction time.
type ConfigOption func(*Config)

// WithContext forces the installation context instead of detecting it.
func WithContext(ctx InstallContext) ConfigOption {
	return func(c *Config) { c.Context = ctx }
}

// WithDaemonPort overrides the daemon HTTP port exported to the service.
// Safe to apply before the descriptor is built; the override survives
// the second option pass in NewConfig.
func WithDaemonPort(port int) ConfigOption {
	return func(c *Config) {
		if c.Descriptor.Environment == nil {
			c.Descriptor.Environment = make(map[string]string)
		}
		c.Descriptor.Environment[EnvPort] = fmt.Sprintf("%d", port)
	}
}

// WithTimeouts overrides the start/stop confirmation deadlines.
func WithTimeouts(start, stop time.Duration) ConfigOption {
	return func(c *Config) {
		if start > 0 {
			c.StartTimeout = start
		}
		if stop > 0 {
			c.StopTimeout = stop
		}
	}
}

// WithNonInteractive disables elevation prompts.
func WithNonInteractive() ConfigOption {
	return func(c *Config) { c.NonInteractive = true }
}

// NewConfig detects platform and context, derives the path set, and
// builds the default descriptor. Returns ErrUnsupportedPlatform when
// the host has no supported service manager so callers fail fast
// before touching any native API.
func NewConfig(opts ...ConfigOption) (*Config, error) {
	platform := DetectPlatform()
	if platform == PlatformUnsupported {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, hostDescription())
	}

	cfg := &Config{
		Platform:     platform,
		Context:      DetectContext(),
		StartTimeout: DefaultStartTimeout,
		StopTimeout:  DefaultStopTimeout,
		RestartDelay: DefaultRestartDelay,
		PollInterval: DefaultPollInterval,
	}

	// Context overrides must land before paths are derived, so apply
	// options in two passes around the path computation.
	for _, opt := range opts {
		opt(cfg)
	}

	env, err := hostPathEnv()
	if err != nil {
		return nil, err
	}
	paths, err := DefaultPathSet(cfg.Platform, cfg.Context, env)
	if err != nil {
		return nil, err
	}
	cfg.Paths = paths
	cfg.Descriptor = DefaultDescriptor(cfg.Platform, cfg.Context, cfg.Paths, 0)

	for _, opt := range opts {
		opt(cfg)
	}
	return cfg, nil
}

// hostPathEnv collects the environment the path derivation needs.
func hostPathEnv() (PathEnv, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return PathEnv{}, fmt.Errorf("resolving home dir: %w", err)
	}
	env := PathEnv{
		Home:         home,
		ProgramData:  os.Getenv("PROGRAMDATA"),
		ProgramFiles: os.Getenv("PROGRAMFILES"),
		LocalAppData: os.Getenv("LOCALAPPDATA"),
	}
	if env.ProgramData == "" {
		env.ProgramData = `C:\ProgramData`
	}
	if env.ProgramFiles == "" {
		env.ProgramFiles = `C:\Program Files`
	}
	return env, nil
}
