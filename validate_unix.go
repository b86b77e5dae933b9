//go:build !windows

package servicectl

import (
	"os"
	"os/user"
	"strconv"
	"syscall"
)

// checkOwnership verifies the provisioned directories belong to the
// service account. Only meaningful for system installs; user installs
// run under whoever provisioned them.
func checkOwnership(cfg *Config, verr *ValidationError) {
	if cfg.Context != ContextSystem {
		return
	}
	u, err := user.Lookup(ServiceAccount)
	if err != nil {
		verr.Add("service-account", "account %s not present: %v", ServiceAccount, err)
		return
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return
	}
	for _, dir := range []struct{ name, path string }{
		{"config-dir", cfg.Paths.ConfigDir},
		{"state-dir", cfg.Paths.StateDir},
		{"log-dir", cfg.Paths.LogDir},
	} {
		checkOwner(dir.path, uid, dir.name, verr)
	}
}

// checkOwner reports a violation when path exists but is owned by a
// different uid. A missing path is reported elsewhere.
func checkOwner(path string, uid int, name string, verr *ValidationError) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return
	}
	if int(st.Uid) != uid {
		verr.Add(name, "%s is owned by uid %d, want %s (uid %d)", path, st.Uid, ServiceAccount, uid)
	}
}
