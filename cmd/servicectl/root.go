package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	servicectl "github.com/axondata/servicectl"
	"github.com/axondata/servicectl/internal/format"
)

// exitError carries a process exit code through cobra's error return.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit code %d", e.code) }

func execute(ctx context.Context) int {
	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		var xerr *exitError
		if errors.As(err, &xerr) {
			return xerr.code
		}
		fmt.Fprintf(os.Stderr, "servicectl: %v\n", err)
		if errors.Is(err, servicectl.ErrUnsupportedPlatform) {
			return servicectl.ExitUnsupportedPlatform
		}
		return servicectl.ExitUsage
	}
	return servicectl.ExitOK
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "servicectl",
		Short: "Manage the Axon Workstation daemon as a native OS service",
		Long: `servicectl installs, starts, stops, monitors, and removes the Axon
Workstation daemon (wsd) as a native service: launchd on macOS,
systemd on Linux, and the Service Control Manager on Windows.

One logical service definition is translated into the native
descriptor for the detected platform; install, status, and logs
behave the same everywhere.`,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			setupLogging(v)
			return nil
		},
	}

	v.SetEnvPrefix("SERVICECTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	pf := cmd.PersistentFlags()
	pf.String("context", "", "installation context: system or user (default: detected from privilege)")
	pf.Int("port", 0, fmt.Sprintf("daemon HTTP port exported to the service (default %d)", servicectl.DefaultDaemonPort))
	pf.Duration("start-timeout", servicectl.DefaultStartTimeout, "how long to wait for a confirmed running state")
	pf.Duration("stop-timeout", servicectl.DefaultStopTimeout, "how long to wait for a confirmed stopped state")
	pf.Bool("non-interactive", false, "never prompt for elevation; fail instead")
	pf.BoolP("verbose", "v", false, "enable debug logging")
	if err := v.BindPFlags(pf); err != nil {
		panic(err)
	}

	cmd.AddCommand(
		newInstallCmd(v),
		newUninstallCmd(v),
		newReinstallCmd(v),
		newLifecycleCmd(v, "start", "Start the daemon and wait until it is confirmed running"),
		newLifecycleCmd(v, "stop", "Stop the daemon and wait until it is confirmed stopped"),
		newLifecycleCmd(v, "restart", "Stop then start the daemon"),
		newStatusCmd(v),
		newLogsCmd(v),
		newFollowCmd(v),
		newValidateCmd(v),
	)
	return cmd
}

// setupLogging wires slog to stderr. Debug level comes from --verbose
// or SERVICECTL_LOG_LEVEL=debug.
func setupLogging(v *viper.Viper) {
	level := slog.LevelInfo
	if v.GetBool("verbose") || strings.EqualFold(os.Getenv("SERVICECTL_LOG_LEVEL"), "debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// loadConfig turns the bound flag/env values into a Config.
func loadConfig(v *viper.Viper) (*servicectl.Config, error) {
	var opts []servicectl.ConfigOption

	if raw := v.GetString("context"); raw != "" {
		ictx, err := parseContext(raw)
		if err != nil {
			return nil, err
		}
		opts = append(opts, servicectl.WithContext(ictx))
	}
	if port := v.GetInt("port"); port > 0 {
		opts = append(opts, servicectl.WithDaemonPort(port))
	}
	opts = append(opts, servicectl.WithTimeouts(
		v.GetDuration("start-timeout"), v.GetDuration("stop-timeout")))
	if v.GetBool("non-interactive") {
		opts = append(opts, servicectl.WithNonInteractive())
	}
	return servicectl.NewConfig(opts...)
}

func parseContext(raw string) (servicectl.InstallContext, error) {
	switch strings.ToLower(raw) {
	case "system":
		return servicectl.ContextSystem, nil
	case "user":
		return servicectl.ContextUser, nil
	default:
		return servicectl.ContextSystem, fmt.Errorf("invalid context %q: want system or user", raw)
	}
}

// dispatch builds the Dispatcher and runs one command, converting the
// exit code into cobra's error channel. All ten commands go through
// here; styled rendering is injected so the library stays plain-text.
func dispatch(cmd *cobra.Command, v *viper.Viper, command string, opts servicectl.DispatchOptions) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return configError(err)
	}
	d, err := servicectl.NewDispatcher(cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(),
		servicectl.WithRenderer(servicectl.Renderer{
			Status:     format.Status,
			Violations: format.Violations,
			LogLine:    format.LogLine,
		}))
	if err != nil {
		return configError(err)
	}
	if code := d.Dispatch(cmd.Context(), command, opts); code != servicectl.ExitOK {
		return &exitError{code: code}
	}
	return nil
}

// configError reports a setup failure with its taxonomy tag and maps
// it straight to an exit code.
func configError(err error) error {
	fmt.Fprintf(os.Stderr, "%s: %v\n", servicectl.Tag(err), err)
	return &exitError{code: servicectl.ExitCode(err)}
}

// elapsed logs how long a command took at debug level.
func elapsed(command string, start time.Time) {
	slog.Debug("command finished", "command", command, "elapsed", time.Since(start).Round(time.Millisecond))
}
