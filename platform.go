package servicectl

import (
	"os"
	"runtime"
)

// Platform represents the native service manager family for the host OS.
type Platform int

const (
	// PlatformUnsupported represents a host with no supported service manager
	PlatformUnsupported Platform = iota
	// PlatformDarwin represents macOS with launchd
	PlatformDarwin
	// PlatformLinux represents Linux with systemd
	PlatformLinux
	// PlatformWindows represents Windows with the Service Control Manager
	PlatformWindows
)

// Platform string constants
const (
	platformUnsupportedStr = "unsupported"
	platformDarwinStr      = "darwin"
	platformLinuxStr       = "linux"
	platformWindowsStr     = "windows"
)

// systemdRuntimeDir exists only when systemd is PID 1.
const systemdRuntimeDir = "/run/systemd/system"

// DetectPlatform identifies the native service manager for the running
// host. Linux without systemd is reported as unsupported: other init
// systems have no stable descriptor or query surface this tool targets.
func DetectPlatform() Platform {
	return detectPlatform(runtime.GOOS, func(path string) bool {
		info, err := os.Stat(path)
		return err == nil && info.IsDir()
	})
}

// detectPlatform is the testable core of DetectPlatform.
func detectPlatform(goos string, dirExists func(string) bool) Platform {
	switch goos {
	case "darwin":
		return PlatformDarwin
	case "linux":
		if dirExists(systemdRuntimeDir) {
			return PlatformLinux
		}
		return PlatformUnsupported
	case "windows":
		return PlatformWindows
	default:
		return PlatformUnsupported
	}
}

// hostDescription names the host in unsupported-platform errors,
// distinguishing "linux without systemd" from a genuinely foreign OS.
func hostDescription() string {
	if runtime.GOOS == "linux" {
		return "linux without systemd"
	}
	return runtime.GOOS
}

// String returns the string representation of the Platform
func (p Platform) String() string {
	switch p {
	case PlatformDarwin:
		return platformDarwinStr
	case PlatformLinux:
		return platformLinuxStr
	case PlatformWindows:
		return platformWindowsStr
	case PlatformUnsupported:
		fallthrough
	default:
		return platformUnsupportedStr
	}
}
