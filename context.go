package servicectl

// InstallContext determines whether the service is registered for the
// calling user only or machine-wide. It fixes both the path set and the
// privilege required for mutating commands, and is computed once at
// process start.
type InstallContext int

const (
	// ContextSystem registers the service machine-wide (LaunchDaemons,
	// /etc/systemd/system, SCM). Requires elevation.
	ContextSystem InstallContext = iota
	// ContextUser registers the service for the calling user only
	// (LaunchAgents, systemctl --user). No elevation required on unix.
	ContextUser
)

// String returns the string representation of the InstallContext
func (c InstallContext) String() string {
	if c == ContextUser {
		return "user"
	}
	return "system"
}

// DetectContext picks the installation context from the caller's
// effective privilege: elevated callers get the system context,
// everyone else the user context. A CLI flag can override the result.
func DetectContext() InstallContext {
	if isElevated() {
		return ContextSystem
	}
	return ContextUser
}
