package servicectl

import (
	"fmt"
	"path/filepath"
)

// PathSet is the full set of filesystem locations used for one
// (Platform, InstallContext) pair. It is derived once by
// DefaultPathSet and passed by value into every component; nothing
// recomputes paths on its own.
type PathSet struct {
	// BinaryDir is the directory expected to contain the daemon executable
	BinaryDir string
	// ConfigDir holds the daemon configuration and credential template
	ConfigDir string
	// StateDir holds daemon runtime state, including its keypair
	StateDir string
	// LogDir holds the daemon's plain-file logs
	LogDir string
	// DescriptorPath is where the native service descriptor lives.
	// On Windows the SCM database holds the real registration; this
	// path records the rendered registration parameters for validate.
	DescriptorPath string
}

// PathEnv holds the environment names a Windows path set depends on.
// They are parameters, not os.Getenv calls, so path derivation stays a
// pure function.
type PathEnv struct {
	// Home is the user's home directory
	Home string
	// ProgramData is %PROGRAMDATA% (Windows only)
	ProgramData string
	// ProgramFiles is %PROGRAMFILES% (Windows only)
	ProgramFiles string
	// LocalAppData is %LOCALAPPDATA% (Windows only)
	LocalAppData string
}

// DefaultPathSet derives the conventional locations for the given
// platform and context. It is deterministic and side-effect free so
// every platform's layout is testable from any host.
func DefaultPathSet(platform Platform, ctx InstallContext, env PathEnv) (PathSet, error) {
	switch platform {
	case PlatformDarwin:
		if ctx == ContextSystem {
			return PathSet{
				BinaryDir:      "/usr/local/bin",
				ConfigDir:      "/Library/Application Support/" + ProductName,
				StateDir:       "/Library/Application Support/" + ProductName + "/state",
				LogDir:         "/Library/Logs/" + ProductName,
				DescriptorPath: "/Library/LaunchDaemons/" + ServiceLabel + ".plist",
			}, nil
		}
		return PathSet{
			BinaryDir:      filepath.Join(env.Home, ".local", "bin"),
			ConfigDir:      filepath.Join(env.Home, "Library", "Application Support", ProductName),
			StateDir:       filepath.Join(env.Home, "Library", "Application Support", ProductName, "state"),
			LogDir:         filepath.Join(env.Home, "Library", "Logs", ProductName),
			DescriptorPath: filepath.Join(env.Home, "Library", "LaunchAgents", ServiceLabel+".plist"),
		}, nil

	case PlatformLinux:
		if ctx == ContextSystem {
			return PathSet{
				BinaryDir:      "/usr/local/bin",
				ConfigDir:      "/etc/" + ServiceName,
				StateDir:       "/var/lib/" + ServiceName,
				LogDir:         "/var/log/" + ServiceName,
				DescriptorPath: "/etc/systemd/system/" + ServiceName + ".service",
			}, nil
		}
		return PathSet{
			BinaryDir:      filepath.Join(env.Home, ".local", "bin"),
			ConfigDir:      filepath.Join(env.Home, ".config", ServiceName),
			StateDir:       filepath.Join(env.Home, ".local", "state", ServiceName),
			LogDir:         filepath.Join(env.Home, ".local", "state", ServiceName, "log"),
			DescriptorPath: filepath.Join(env.Home, ".config", "systemd", "user", ServiceName+".service"),
		}, nil

	case PlatformWindows:
		if ctx == ContextSystem {
			return PathSet{
				BinaryDir:      filepath.Join(env.ProgramFiles, ProductName),
				ConfigDir:      filepath.Join(env.ProgramData, ProductName),
				StateDir:       filepath.Join(env.ProgramData, ProductName, "state"),
				LogDir:         filepath.Join(env.ProgramData, ProductName, "Logs"),
				DescriptorPath: filepath.Join(env.ProgramData, ProductName, ServiceName+".service.json"),
			}, nil
		}
		return PathSet{
			BinaryDir:      filepath.Join(env.LocalAppData, ProductName, "bin"),
			ConfigDir:      filepath.Join(env.LocalAppData, ProductName),
			StateDir:       filepath.Join(env.LocalAppData, ProductName, "state"),
			LogDir:         filepath.Join(env.LocalAppData, ProductName, "Logs"),
			DescriptorPath: filepath.Join(env.LocalAppData, ProductName, ServiceName+".service.json"),
		}, nil

	default:
		return PathSet{}, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platform)
	}
}

// DaemonLogPath is the daemon's own plain-file log inside LogDir.
func (p PathSet) DaemonLogPath() string {
	return filepath.Join(p.LogDir, ServiceName+".log")
}

// ConfigFilePath is the daemon's main configuration file.
func (p PathSet) ConfigFilePath() string {
	return filepath.Join(p.ConfigDir, "config.yaml")
}

// CredentialsTemplatePath is the credential template written at provision time.
func (p PathSet) CredentialsTemplatePath() string {
	return filepath.Join(p.ConfigDir, "credentials.yaml.example")
}

// PrivateKeyPath is the daemon's generated private key.
func (p PathSet) PrivateKeyPath() string {
	return filepath.Join(p.StateDir, "wsd_ed25519")
}

// PublicKeyPath is the OpenSSH-encoded public half of the keypair.
func (p PathSet) PublicKeyPath() string {
	return filepath.Join(p.StateDir, "wsd_ed25519.pub")
}

// ExecutablePath is the expected location of the daemon binary.
func (p PathSet) ExecutablePath(platform Platform) string {
	name := DaemonBinary
	if platform == PlatformWindows {
		name += ".exe"
	}
	return filepath.Join(p.BinaryDir, name)
}
