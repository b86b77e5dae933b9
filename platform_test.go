package servicectl

import (
	"testing"
)

func TestDetectPlatform(t *testing.T) {
	hasSystemd := func(path string) bool { return path == systemdRuntimeDir }
	noSystemd := func(string) bool { return false }

	tests := []struct {
		name      string
		goos      string
		dirExists func(string) bool
		want      Platform
	}{
		{name: "darwin", goos: "darwin", dirExists: noSystemd, want: PlatformDarwin},
		{name: "linux_with_systemd", goos: "linux", dirExists: hasSystemd, want: PlatformLinux},
		{name: "linux_without_systemd", goos: "linux", dirExists: noSystemd, want: PlatformUnsupported},
		{name: "windows", goos: "windows", dirExists: noSystemd, want: PlatformWindows},
		{name: "freebsd", goos: "freebsd", dirExists: noSystemd, want: PlatformUnsupported},
		{name: "plan9", goos: "plan9", dirExists: hasSystemd, want: PlatformUnsupported},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := detectPlatform(tc.goos, tc.dirExists)
			if got != tc.want {
				t.Errorf("detectPlatform(%q) = %v, want %v", tc.goos, got, tc.want)
			}
		})
	}
}

func TestPlatformString(t *testing.T) {
	tests := []struct {
		platform Platform
		want     string
	}{
		{PlatformDarwin, "darwin"},
		{PlatformLinux, "linux"},
		{PlatformWindows, "windows"},
		{PlatformUnsupported, "unsupported"},
		{Platform(99), "unsupported"},
	}
	for _, tc := range tests {
		if got := tc.platform.String(); got != tc.want {
			t.Errorf("Platform(%d).String() = %q, want %q", tc.platform, got, tc.want)
		}
	}
}

func TestInstallContextString(t *testing.T) {
	if got := ContextSystem.String(); got != "system" {
		t.Errorf("ContextSystem.String() = %q, want %q", got, "system")
	}
	if got := ContextUser.String(); got != "user" {
		t.Errorf("ContextUser.String() = %q, want %q", got, "user")
	}
}
