package servicectl

import (
	"fmt"
	"strings"
)

// renderSystemdUnit generates the systemd unit file content for the
// descriptor. Environment variables are emitted in sorted key order so
// repeated renders are byte-identical.
func renderSystemdUnit(d *ServiceDescriptor) ([]byte, error) {
	if len(d.commandLine()) == 0 {
		return nil, fmt.Errorf("%w: command not specified", ErrDescriptorGeneration)
	}

	var unit strings.Builder

	unit.WriteString("[Unit]\n")
	fmt.Fprintf(&unit, "Description=%s\n", d.Description)
	unit.WriteString("After=network-online.target\n")
	unit.WriteString("Wants=network-online.target\n")
	unit.WriteString("\n")

	unit.WriteString("[Service]\n")
	unit.WriteString("Type=simple\n")
	fmt.Fprintf(&unit, "Restart=%s\n", d.Restart)
	if d.RestartSec > 0 {
		fmt.Fprintf(&unit, "RestartSec=%d\n", d.RestartSec)
	}
	unit.WriteString("KillMode=mixed\n")
	unit.WriteString("KillSignal=SIGTERM\n")
	unit.WriteString("TimeoutStopSec=30\n")

	if d.User != "" {
		fmt.Fprintf(&unit, "User=%s\n", d.User)
	}
	if d.Group != "" {
		fmt.Fprintf(&unit, "Group=%s\n", d.Group)
	}

	if d.Limits.OpenFiles > 0 {
		fmt.Fprintf(&unit, "LimitNOFILE=%d\n", d.Limits.OpenFiles)
	}
	if d.Limits.Processes > 0 {
		fmt.Fprintf(&unit, "LimitNPROC=%d\n", d.Limits.Processes)
	}

	if d.Harden.NoNewPrivileges {
		unit.WriteString("NoNewPrivileges=yes\n")
	}
	if d.Harden.ProtectSystem {
		unit.WriteString("ProtectSystem=strict\n")
		// strict mounts the whole tree read-only; carve out the
		// directories the daemon writes
		fmt.Fprintf(&unit, "ReadWritePaths=%s\n", strings.Join([]string{
			d.Environment[EnvStateDir],
			d.Environment[EnvLogDir],
		}, " "))
	}
	if d.Harden.PrivateTmp {
		unit.WriteString("PrivateTmp=yes\n")
	}

	if d.WorkingDirectory != "" {
		fmt.Fprintf(&unit, "WorkingDirectory=%s\n", d.WorkingDirectory)
	}

	for _, key := range d.envKeys() {
		value := strings.ReplaceAll(d.Environment[key], `"`, `\"`)
		fmt.Fprintf(&unit, "Environment=\"%s=%s\"\n", key, value)
	}

	fmt.Fprintf(&unit, "ExecStart=%s\n", quoteCommand(d.commandLine()))

	unit.WriteString("StandardOutput=journal\n")
	unit.WriteString("StandardError=journal\n")
	fmt.Fprintf(&unit, "SyslogIdentifier=%s\n", d.Name)

	unit.WriteString("\n")
	unit.WriteString("[Install]\n")
	if d.Context == ContextSystem {
		unit.WriteString("WantedBy=multi-user.target\n")
	} else {
		unit.WriteString("WantedBy=default.target\n")
	}

	return []byte(unit.String()), nil
}

// quoteCommand joins a command line, quoting arguments containing
// whitespace or shell metacharacters the way systemd expects.
func quoteCommand(cmd []string) string {
	out := cmd[0]
	for _, arg := range cmd[1:] {
		if strings.ContainsAny(arg, " \t\n\"'\\$") {
			arg = fmt.Sprintf("%q", arg)
		}
		out += " " + arg
	}
	return out
}
