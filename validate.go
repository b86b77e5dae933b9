package servicectl

import (
	"os"

	"gopkg.in/yaml.v3"
)

// validateCommon runs the platform-independent consistency checks:
// executable, descriptor file, provisioned directories, and daemon
// configuration. Violations are collected, never returned early, so
// one validate run reports every problem at once.
func validateCommon(cfg *Config, platform Platform, verr *ValidationError) {
	exe := cfg.Descriptor.ExecutablePath
	if info, err := os.Stat(exe); err != nil {
		verr.Add("executable", "%s not found", exe)
	} else if platform != PlatformWindows && info.Mode()&0o111 == 0 {
		verr.Add("executable", "%s is not executable", exe)
	}

	if data, err := os.ReadFile(cfg.Paths.DescriptorPath); err != nil {
		verr.Add("descriptor", "%s not present", cfg.Paths.DescriptorPath)
	} else {
		// drift check: regenerate and compare, generation being
		// deterministic makes byte comparison sufficient
		native, err := Generate(cfg.Descriptor, platform, cfg.Paths)
		if err != nil {
			verr.Add("descriptor", "regeneration failed: %v", err)
		} else if string(native.Content) != string(data) {
			verr.Add("descriptor-drift", "%s differs from generated content", cfg.Paths.DescriptorPath)
		}
	}

	for _, dir := range []struct{ name, path string }{
		{"config-dir", cfg.Paths.ConfigDir},
		{"state-dir", cfg.Paths.StateDir},
		{"log-dir", cfg.Paths.LogDir},
	} {
		info, err := os.Stat(dir.path)
		if err != nil {
			verr.Add(dir.name, "%s not present", dir.path)
			continue
		}
		if !info.IsDir() {
			verr.Add(dir.name, "%s is not a directory", dir.path)
		}
	}

	if data, err := os.ReadFile(cfg.Paths.ConfigFilePath()); err != nil {
		verr.Add("config-file", "%s not present", cfg.Paths.ConfigFilePath())
	} else {
		var dc DaemonConfig
		if err := yaml.Unmarshal(data, &dc); err != nil {
			verr.Add("config-file", "%s is not valid YAML: %v", cfg.Paths.ConfigFilePath(), err)
		}
	}

	if _, err := os.Stat(cfg.Paths.PrivateKeyPath()); err != nil {
		verr.Add("keypair", "%s not present", cfg.Paths.PrivateKeyPath())
	}

	checkOwnership(cfg, verr)
}
