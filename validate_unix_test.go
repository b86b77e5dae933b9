//go:build !windows

package servicectl

import (
	"os"
	"testing"
)

func TestCheckOwnerMatchingUID(t *testing.T) {
	dir := t.TempDir()

	var verr ValidationError
	checkOwner(dir, os.Getuid(), "state-dir", &verr)
	if len(verr.Violations) != 0 {
		t.Errorf("own directory reported violations: %v", verr.Violations)
	}
}

func TestCheckOwnerForeignUID(t *testing.T) {
	dir := t.TempDir()

	var verr ValidationError
	checkOwner(dir, os.Getuid()+1, "state-dir", &verr)
	if !violationChecks(verr.Violations)["state-dir"] {
		t.Errorf("foreign owner not reported, violations: %v", verr.Violations)
	}
}

func TestCheckOwnerMissingPath(t *testing.T) {
	var verr ValidationError
	checkOwner("/nonexistent/path/for/ownership", os.Getuid(), "log-dir", &verr)
	if len(verr.Violations) != 0 {
		t.Errorf("missing path must not double-report: %v", verr.Violations)
	}
}

func TestCheckOwnershipSkipsUserContext(t *testing.T) {
	cfg := testConfig(t, PlatformLinux)

	var verr ValidationError
	checkOwnership(cfg, &verr)
	if len(verr.Violations) != 0 {
		t.Errorf("user context must skip ownership checks: %v", verr.Violations)
	}
}
