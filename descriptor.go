package servicectl

import (
	"fmt"
	"sort"
	"strconv"
)

// RestartPolicy controls how the native manager reacts to daemon exits.
type RestartPolicy int

const (
	// RestartAlways restarts the daemon on any exit
	RestartAlways RestartPolicy = iota
	// RestartOnFailure restarts only on non-zero exit
	RestartOnFailure
	// RestartNever leaves the daemon down after exit
	RestartNever
)

// String returns the systemd spelling of the policy
func (r RestartPolicy) String() string {
	switch r {
	case RestartOnFailure:
		return "on-failure"
	case RestartNever:
		return "no"
	default:
		return "always"
	}
}

// ResourceLimits are mapped to LimitNOFILE/LimitNPROC on systemd and
// SoftResourceLimits on launchd. Zero means platform default.
type ResourceLimits struct {
	// OpenFiles is the max open file descriptors
	OpenFiles int
	// Processes is the max process/thread count
	Processes int
}

// Hardening holds the sandboxing switches translated into native
// directives where the platform supports them (systemd only; launchd
// and SCM have no equivalent and ignore these).
type Hardening struct {
	// NoNewPrivileges maps to NoNewPrivileges=yes
	NoNewPrivileges bool
	// ProtectSystem maps to ProtectSystem=strict
	ProtectSystem bool
	// PrivateTmp maps to PrivateTmp=yes
	PrivateTmp bool
}

// ServiceDescriptor is the platform-neutral service definition. One
// descriptor translates into exactly one native artifact via Generate.
type ServiceDescriptor struct {
	// Name is the short service name (unit name, SCM name)
	Name string
	// Label is the reverse-DNS launchd label
	Label string
	// DisplayName is the human-readable name
	DisplayName string
	// Description describes the service in native registrations
	Description string
	// ExecutablePath is the absolute path to the daemon binary
	ExecutablePath string
	// Arguments are passed to the daemon after the executable
	Arguments []string
	// WorkingDirectory is the daemon's working directory
	WorkingDirectory string
	// Environment is exported to the daemon process
	Environment map[string]string
	// Restart controls crash/exit recovery
	Restart RestartPolicy
	// RestartSec is the delay in seconds before a restart
	RestartSec int
	// ThrottleSec rate-limits crash-loop restarts
	ThrottleSec int
	// Limits are the resource limits, zero fields use platform defaults
	Limits ResourceLimits
	// Harden holds sandboxing flags (systemd)
	Harden Hardening
	// Context is the install context the descriptor targets; it picks
	// the systemd install target among other things
	Context InstallContext
	// User the daemon runs as; empty means the manager default
	User string
	// Group the daemon runs as; empty means the manager default
	Group string
	// StdoutPath receives daemon stdout on launchd
	StdoutPath string
	// StderrPath receives daemon stderr on launchd
	StderrPath string
}

// DefaultDescriptor builds the daemon's descriptor for the given
// context and path set. The exported environment always carries the
// config/state/log directories and the daemon port so the daemon never
// rediscovers them.
func DefaultDescriptor(platform Platform, ctx InstallContext, paths PathSet, port int) ServiceDescriptor {
	if port == 0 {
		port = DefaultDaemonPort
	}
	d := ServiceDescriptor{
		Context:          ctx,
		Name:             ServiceName,
		Label:            ServiceLabel,
		DisplayName:      ServiceDisplayName,
		Description:      ServiceDescription,
		ExecutablePath:   paths.ExecutablePath(platform),
		Arguments:        []string{"--service"},
		WorkingDirectory: paths.StateDir,
		Environment: map[string]string{
			EnvConfigDir: paths.ConfigDir,
			EnvStateDir:  paths.StateDir,
			EnvLogDir:    paths.LogDir,
			EnvPort:      strconv.Itoa(port),
		},
		Restart:     RestartAlways,
		RestartSec:  DefaultThrottleSec,
		ThrottleSec: DefaultThrottleSec,
		Limits: ResourceLimits{
			OpenFiles: 4096,
			Processes: 512,
		},
		Harden: Hardening{
			NoNewPrivileges: true,
			ProtectSystem:   true,
			PrivateTmp:      true,
		},
		StdoutPath: paths.DaemonLogPath(),
		StderrPath: paths.DaemonLogPath(),
	}
	if ctx == ContextSystem && platform != PlatformWindows {
		d.User = ServiceAccount
		d.Group = ServiceGroup
	}
	return d
}

// Validate rejects descriptors that cannot be rendered.
func (d *ServiceDescriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: empty service name", ErrDescriptorGeneration)
	}
	if d.ExecutablePath == "" {
		return fmt.Errorf("%w: empty executable path", ErrDescriptorGeneration)
	}
	for key := range d.Environment {
		if key == "" {
			return fmt.Errorf("%w: empty environment variable name", ErrDescriptorGeneration)
		}
	}
	return nil
}

// envKeys returns the environment variable names in sorted order.
// Generation iterates this, not the map, so output is deterministic.
func (d *ServiceDescriptor) envKeys() []string {
	keys := make([]string, 0, len(d.Environment))
	for k := range d.Environment {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// commandLine returns the executable followed by its arguments.
func (d *ServiceDescriptor) commandLine() []string {
	return append([]string{d.ExecutablePath}, d.Arguments...)
}
