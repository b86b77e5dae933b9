package servicectl

import (
	"fmt"
	"time"
)

// ServiceState is the normalized view of the native service state. It
// is derived fresh from native queries on every call and never cached:
// the service can change state outside this tool's control.
type ServiceState int

const (
	// StateUnknown means the native query failed or was unparseable
	StateUnknown ServiceState = iota
	// StateNotInstalled means no native registration exists
	StateNotInstalled
	// StateStopped means registered but not running
	StateStopped
	// StateRunning means registered with a live process
	StateRunning
	// StateFailed means the native manager reports a failed last run
	StateFailed
)

// String returns the string representation of the ServiceState
func (s ServiceState) String() string {
	switch s {
	case StateNotInstalled:
		return "not-installed"
	case StateStopped:
		return "installed-stopped"
	case StateRunning:
		return "installed-running"
	case StateFailed:
		return "installed-failed"
	default:
		return "unknown"
	}
}

// Status is the normalized status report assembled from native queries
// plus optional process enrichment.
type Status struct {
	// State is the normalized service state
	State ServiceState
	// PID is the daemon's process id, zero when not resolvable
	PID int
	// Uptime is how long the process has been alive, zero when unknown
	Uptime time.Duration
	// Enabled reports whether the service starts at boot/login
	Enabled bool
	// Detail carries the raw native state words (e.g. "active/running")
	Detail string
}

// String returns a single human-readable status line
func (s Status) String() string {
	line := s.State.String()
	if s.PID > 0 {
		line += fmt.Sprintf(" pid=%d", s.PID)
	}
	if s.Uptime > 0 {
		line += fmt.Sprintf(" uptime=%s", s.Uptime.Round(time.Second))
	}
	if s.Detail != "" {
		line += " (" + s.Detail + ")"
	}
	return line
}
