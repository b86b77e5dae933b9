//go:build linux || darwin

package servicectl

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"runtime"
	"strconv"
)

// ensureServiceAccount creates the dedicated unprivileged service
// account and group when absent. A present account is a no-op, so
// reinstall keeps whatever uid/gid the first install allocated.
func ensureServiceAccount() error {
	if _, err := user.Lookup(ServiceAccount); err == nil {
		return nil
	}

	ctx := context.Background()
	var cmds [][]string
	if runtime.GOOS == "darwin" {
		// dscl has no single create-user verb; build the record field
		// by field under /Users with no shell and no home
		base := "/Users/_" + ServiceAccount
		cmds = [][]string{
			{"dscl", ".", "-create", base},
			{"dscl", ".", "-create", base, "UserShell", "/usr/bin/false"},
			{"dscl", ".", "-create", base, "UniqueID", "799"},
			{"dscl", ".", "-create", base, "PrimaryGroupID", "799"},
			{"dscl", ".", "-create", "/Groups/_" + ServiceGroup, "PrimaryGroupID", "799"},
		}
	} else {
		cmds = [][]string{
			{"groupadd", "--system", ServiceGroup},
			{"useradd", "--system", "--no-create-home",
				"--gid", ServiceGroup,
				"--shell", "/usr/sbin/nologin",
				"--comment", ServiceDisplayName,
				ServiceAccount},
		}
	}

	for _, argv := range cmds {
		cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("%s: %w: %s", argv[0], err, out)
		}
	}
	return nil
}

// chownServiceAccount hands the path to the service account/group.
func chownServiceAccount(path string) error {
	account := ServiceAccount
	group := ServiceGroup
	if runtime.GOOS == "darwin" {
		account = "_" + account
		group = "_" + group
	}

	u, err := user.Lookup(account)
	if err != nil {
		return fmt.Errorf("looking up %s: %w", account, err)
	}
	g, err := user.LookupGroup(group)
	if err != nil {
		return fmt.Errorf("looking up group %s: %w", group, err)
	}

	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return err
	}
	gid, err := strconv.Atoi(g.Gid)
	if err != nil {
		return err
	}
	return os.Chown(path, uid, gid)
}
