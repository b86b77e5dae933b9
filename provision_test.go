package servicectl

import (
	"bytes"
	"os"
	"runtime"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestProvisionCreatesLayout(t *testing.T) {
	cfg := testConfig(t, PlatformLinux)

	var out bytes.Buffer
	if err := Provision(cfg, &out); err != nil {
		t.Fatalf("Provision failed: %v", err)
	}

	for _, dir := range []string{cfg.Paths.ConfigDir, cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("directory %s missing: %v", dir, err)
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}

	if runtime.GOOS != "windows" {
		info, _ := os.Stat(cfg.Paths.ConfigDir)
		if info.Mode().Perm() != ConfigDirMode {
			t.Errorf("config dir mode = %v, want %v", info.Mode().Perm(), ConfigDirMode)
		}
	}

	// the public key is announced exactly once, to the provided writer
	if !strings.Contains(out.String(), "daemon public key: ssh-ed25519 ") {
		t.Errorf("public key not printed: %q", out.String())
	}

	data, err := os.ReadFile(cfg.Paths.ConfigFilePath())
	if err != nil {
		t.Fatalf("config file missing: %v", err)
	}
	var dc DaemonConfig
	if err := yaml.Unmarshal(data, &dc); err != nil {
		t.Fatalf("config file is not YAML: %v", err)
	}
	if dc.Port != DefaultDaemonPort {
		t.Errorf("config port = %d, want %d", dc.Port, DefaultDaemonPort)
	}
	if dc.LogLevel != "info" {
		t.Errorf("config log level = %q", dc.LogLevel)
	}

	tmpl, err := os.ReadFile(cfg.Paths.CredentialsTemplatePath())
	if err != nil {
		t.Fatalf("credentials template missing: %v", err)
	}
	if !strings.Contains(string(tmpl), "access_key_id") {
		t.Errorf("template content = %q", tmpl)
	}
	// the template must never ship real values
	if !strings.Contains(string(tmpl), `access_key_id: ""`) {
		t.Error("template fields should be empty placeholders")
	}
}

func TestProvisionIdempotent(t *testing.T) {
	cfg := testConfig(t, PlatformLinux)

	var first bytes.Buffer
	if err := Provision(cfg, &first); err != nil {
		t.Fatalf("first Provision failed: %v", err)
	}

	// operator edits survive re-provisioning
	custom := []byte("port: 9999\nlog_level: debug\nidle_check_minutes: 1\n")
	if err := os.WriteFile(cfg.Paths.ConfigFilePath(), custom, ConfigFileMode); err != nil {
		t.Fatalf("editing config: %v", err)
	}
	keyBefore, err := os.ReadFile(cfg.Paths.PrivateKeyPath())
	if err != nil {
		t.Fatalf("reading key: %v", err)
	}

	var second bytes.Buffer
	if err := Provision(cfg, &second); err != nil {
		t.Fatalf("second Provision failed: %v", err)
	}

	data, _ := os.ReadFile(cfg.Paths.ConfigFilePath())
	if !bytes.Equal(data, custom) {
		t.Error("re-provision overwrote the edited config")
	}
	keyAfter, _ := os.ReadFile(cfg.Paths.PrivateKeyPath())
	if !bytes.Equal(keyBefore, keyAfter) {
		t.Error("re-provision regenerated the keypair")
	}
	// same public key announced both times
	if first.String() != second.String() {
		t.Errorf("public key changed between runs:\n%s\n%s", first.String(), second.String())
	}
}

func TestProvisionUsesDescriptorPort(t *testing.T) {
	cfg := testConfig(t, PlatformLinux)
	cfg.Descriptor.Environment[EnvPort] = "9001"

	var out bytes.Buffer
	if err := Provision(cfg, &out); err != nil {
		t.Fatalf("Provision failed: %v", err)
	}

	data, _ := os.ReadFile(cfg.Paths.ConfigFilePath())
	var dc DaemonConfig
	if err := yaml.Unmarshal(data, &dc); err != nil {
		t.Fatalf("config parse: %v", err)
	}
	if dc.Port != 9001 {
		t.Errorf("config port = %d, want 9001", dc.Port)
	}
}

func TestEnsureDirTightensMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix modes")
	}
	dir := t.TempDir() + "/open"
	if err := os.Mkdir(dir, 0o777); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	// umask may already have tightened it; force the open mode
	if err := os.Chmod(dir, 0o777); err != nil {
		t.Fatalf("chmod: %v", err)
	}

	if err := ensureDir(dir, 0o750); err != nil {
		t.Fatalf("ensureDir failed: %v", err)
	}
	info, _ := os.Stat(dir)
	if info.Mode().Perm() != 0o750 {
		t.Errorf("mode = %v, want 0750", info.Mode().Perm())
	}
}

func TestEnsureDirNeverLoosens(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix modes")
	}
	dir := t.TempDir() + "/tight"
	if err := os.Mkdir(dir, 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.Chmod(dir, 0o700); err != nil {
		t.Fatalf("chmod: %v", err)
	}

	if err := ensureDir(dir, 0o755); err != nil {
		t.Fatalf("ensureDir failed: %v", err)
	}
	info, _ := os.Stat(dir)
	if info.Mode().Perm() != 0o700 {
		t.Errorf("mode = %v, stricter mode must be kept", info.Mode().Perm())
	}
}

func TestEnsureDirRejectsFile(t *testing.T) {
	path := t.TempDir() + "/file"
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ensureDir(path, 0o755); err == nil {
		t.Error("expected error for non-directory path")
	}
}

func TestWriteIfAbsent(t *testing.T) {
	path := t.TempDir() + "/config.yaml"

	if err := writeIfAbsent(path, []byte("original\n"), 0o640); err != nil {
		t.Fatalf("writeIfAbsent failed: %v", err)
	}
	if err := writeIfAbsent(path, []byte("replacement\n"), 0o640); err != nil {
		t.Fatalf("second writeIfAbsent failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "original\n" {
		t.Errorf("content = %q, existing file must not be replaced", data)
	}
}
