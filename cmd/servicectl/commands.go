package main

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	servicectl "github.com/axondata/servicectl"
)

func newInstallCmd(v *viper.Viper) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Register and start the daemon as a native service",
		Long: `Install provisions directories, configuration, and the daemon
keypair, writes the native service descriptor, registers the service
with the platform's service manager, enables it at boot, and starts
it. Installing over an existing registration is a no-op unless
--force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer elapsed("install", time.Now())
			return dispatch(cmd, v, "install", servicectl.DispatchOptions{Force: force})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing registration")
	return cmd
}

func newUninstallCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Stop and remove the native service registration",
		Long: `Uninstall stops the daemon, disables it at boot, and removes the
native registration and descriptor. Configuration, state (including
the daemon keypair), and logs are left in place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer elapsed("uninstall", time.Now())
			return dispatch(cmd, v, "uninstall", servicectl.DispatchOptions{})
		},
	}
}

func newReinstallCmd(v *viper.Viper) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "reinstall",
		Short: "Uninstall then install in one step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer elapsed("reinstall", time.Now())
			return dispatch(cmd, v, "reinstall", servicectl.DispatchOptions{Force: force})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing registration")
	return cmd
}

func newLifecycleCmd(v *viper.Viper, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer elapsed(use, time.Now())
			return dispatch(cmd, v, use, servicectl.DispatchOptions{})
		},
	}
}

func newStatusCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report the daemon's current state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer elapsed("status", time.Now())
			return dispatch(cmd, v, "status", servicectl.DispatchOptions{})
		},
	}
}

func newLogsCmd(v *viper.Viper) *cobra.Command {
	var lines int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent daemon log lines from all sources",
		Long: `Logs merges the daemon's own log file with the platform's system
log (journald, macOS unified log, Windows event log) into one
chronological stream. Each line is labeled with its source.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer elapsed("logs", time.Now())
			return dispatch(cmd, v, "logs", servicectl.DispatchOptions{TailLines: lines})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "number of lines per source")
	return cmd
}

func newFollowCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "follow",
		Short: "Stream daemon log lines until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return dispatch(cmd, v, "follow", servicectl.DispatchOptions{})
		},
	}
}

func newValidateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the installation for drift and misconfiguration",
		Long: `Validate compares the on-disk descriptor against what would be
generated today, checks directories, configuration, the daemon
keypair, and the native registration, and reports every violation
found. It never repairs anything; run reinstall to converge.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer elapsed("validate", time.Now())
			return dispatch(cmd, v, "validate", servicectl.DispatchOptions{})
		},
	}
}
