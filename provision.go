package servicectl

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// DaemonConfig is the daemon's main configuration file, written once at
// provision time and never overwritten afterwards. Directory locations
// are not duplicated here; the daemon receives them through its service
// environment.
type DaemonConfig struct {
	// Port is the daemon's local HTTP API port
	Port int `yaml:"port"`
	// LogLevel is the daemon log level
	LogLevel string `yaml:"log_level"`
	// IdleCheckMinutes is how often the daemon evaluates idle instances
	IdleCheckMinutes int `yaml:"idle_check_minutes"`
}

// credentialsTemplate is the credential file template dropped into the
// config directory. It never contains real secrets; the operator copies
// it to credentials.yaml and fills it in.
const credentialsTemplate = `# Credentials for the workstation daemon.
# Copy to credentials.yaml and fill in; keep mode 0640.
aws:
  profile: ""
  access_key_id: ""
  secret_access_key: ""
  region: "us-east-1"
`

// Provision creates the config/state/log directories with correct
// ownership and mode for the installation context, writes the initial
// daemon configuration and credential template, and ensures the
// daemon's keypair exists. Every step is idempotent: existing
// directories are kept (permissions tightened when too open, never
// loosened), existing files and keys are never overwritten.
//
// The public half of the keypair is printed to out. This is the only
// place the tool emits key material.
func Provision(cfg *Config, out io.Writer) error {
	dirs := []struct {
		path string
		mode fs.FileMode
	}{
		{cfg.Paths.ConfigDir, ConfigDirMode},
		{cfg.Paths.StateDir, StateDirMode},
		{cfg.Paths.LogDir, LogDirMode},
	}
	for _, d := range dirs {
		if err := ensureDir(d.path, d.mode); err != nil {
			return fmt.Errorf("provisioning %s: %w", d.path, err)
		}
	}

	if cfg.Context == ContextSystem {
		if err := ensureServiceAccount(); err != nil {
			return fmt.Errorf("provisioning service account: %w", err)
		}
		for _, d := range dirs {
			if err := chownServiceAccount(d.path); err != nil {
				return fmt.Errorf("chowning %s: %w", d.path, err)
			}
		}
	}

	if err := writeIfAbsent(cfg.Paths.ConfigFilePath(), defaultDaemonConfig(cfg), ConfigFileMode); err != nil {
		return err
	}
	if err := writeIfAbsent(cfg.Paths.CredentialsTemplatePath(), []byte(credentialsTemplate), ConfigFileMode); err != nil {
		return err
	}

	pub, created, err := EnsureKeypair(cfg.Paths)
	if err != nil {
		return err
	}
	if created {
		slog.Info("generated daemon keypair", "path", cfg.Paths.PrivateKeyPath())
	}
	fmt.Fprintf(out, "daemon public key: %s", pub)

	if cfg.Context == ContextSystem {
		for _, p := range []string{cfg.Paths.PrivateKeyPath(), cfg.Paths.PublicKeyPath(), cfg.Paths.ConfigFilePath(), cfg.Paths.CredentialsTemplatePath()} {
			if err := chownServiceAccount(p); err != nil {
				return fmt.Errorf("chowning %s: %w", p, err)
			}
		}
	}

	return nil
}

// ensureDir creates path with mode, or tightens an existing directory
// whose mode grants more than mode does. It never loosens a stricter
// existing mode.
func ensureDir(path string, mode fs.FileMode) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return os.MkdirAll(path, mode)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s exists and is not a directory", path)
	}
	if excess := info.Mode().Perm() &^ mode.Perm(); excess != 0 {
		if err := os.Chmod(path, info.Mode().Perm()&mode.Perm()); err != nil {
			return fmt.Errorf("tightening mode: %w", err)
		}
		slog.Debug("tightened directory mode", "path", path, "removed", fmt.Sprintf("%o", excess))
	}
	return nil
}

// writeIfAbsent writes content atomically unless the file already
// exists.
func writeIfAbsent(path string, content []byte, mode fs.FileMode) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	if err := renameio.WriteFile(path, content, mode); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func defaultDaemonConfig(cfg *Config) []byte {
	port := DefaultDaemonPort
	if p := cfg.Descriptor.Environment[EnvPort]; p != "" {
		fmt.Sscanf(p, "%d", &port)
	}
	content, err := yaml.Marshal(DaemonConfig{
		Port:             port,
		LogLevel:         "info",
		IdleCheckMinutes: 5,
	})
	if err != nil {
		// a fixed struct cannot fail to marshal
		panic(err)
	}
	return content
}
