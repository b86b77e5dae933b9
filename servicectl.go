package servicectl

import (
	"io/fs"
	"time"
)

// Service identity constants
const (
	// ProductName is the product directory name used under
	// Application Support / ProgramData
	ProductName = "AxonWorkstation"

	// ServiceName is the short service name (systemd unit name,
	// SCM service name)
	ServiceName = "wsd"

	// ServiceLabel is the reverse-DNS launchd label
	ServiceLabel = "com.axondata.wsd"

	// ServiceDisplayName is the human-readable name shown by native
	// service managers
	ServiceDisplayName = "Axon Workstation Daemon"

	// ServiceDescription describes the daemon in native registrations
	ServiceDescription = "Manages cloud workstation environments for the Axon Workstation platform"

	// DaemonBinary is the daemon executable name without extension
	DaemonBinary = "wsd"

	// ServiceAccount is the unprivileged account the daemon runs as
	// in the system context
	ServiceAccount = "wsd"

	// ServiceGroup is the group owning state and log directories in
	// the system context
	ServiceGroup = "wsd"

	// EventLogSource is the Windows event log source registered at
	// install time
	EventLogSource = "AxonWorkstationDaemon"
)

// Environment variable names exported to the managed daemon so it never
// rediscovers its directories.
const (
	EnvConfigDir = "WSD_CONFIG_DIR"
	EnvStateDir  = "WSD_STATE_DIR"
	EnvLogDir    = "WSD_LOG_DIR"
	EnvPort      = "WSD_PORT"
)

// DefaultDaemonPort is the daemon's local HTTP API port.
const DefaultDaemonPort = 8737

// Lifecycle timing defaults
const (
	// DefaultStartTimeout bounds the wait for the native manager to
	// confirm a running state after a start request
	DefaultStartTimeout = 30 * time.Second

	// DefaultStopTimeout bounds the wait for a confirmed stop
	DefaultStopTimeout = 30 * time.Second

	// DefaultPollInterval is the sleep between native status queries
	// while waiting for a state transition
	DefaultPollInterval = 500 * time.Millisecond

	// DefaultRestartDelay separates stop and start during restart so
	// the OS can release the daemon's listening socket. The delay is
	// taken even when stop reports already-stopped.
	DefaultRestartDelay = 2 * time.Second

	// DefaultExecTimeout bounds a single native tool invocation
	// (launchctl, systemctl, journalctl)
	DefaultExecTimeout = 10 * time.Second

	// DefaultThrottleSec is the launchd ThrottleInterval / systemd
	// RestartSec applied to crash-loop restarts
	DefaultThrottleSec = 5
)

// File and directory modes
const (
	// ConfigDirMode restricts the config dir: owner rwx, group rx,
	// no world access (credential templates live here)
	ConfigDirMode fs.FileMode = 0o750

	// StateDirMode restricts the state dir: owner rwx, group rx
	StateDirMode fs.FileMode = 0o750

	// LogDirMode is the mode for the log directory
	LogDirMode fs.FileMode = 0o755

	// BinaryDirMode is the mode for the binary directory
	BinaryDirMode fs.FileMode = 0o755

	// DescriptorMode is the mode for generated descriptor files
	DescriptorMode fs.FileMode = 0o644

	// ConfigFileMode is the mode for config and credential files
	ConfigFileMode fs.FileMode = 0o640

	// PrivateKeyMode is the mode for the generated private key
	PrivateKeyMode fs.FileMode = 0o600

	// PublicKeyMode is the mode for the public key file
	PublicKeyMode fs.FileMode = 0o644
)
