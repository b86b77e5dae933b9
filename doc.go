// Package servicectl installs and manages the workstation daemon (wsd)
// as a native OS service on macOS (launchd), Linux (systemd), and
// Windows (Service Control Manager).
//
// The core abstraction is the Driver interface, which provides a
// unified lifecycle API over the three native service managers:
//
//	cfg, err := servicectl.NewConfig()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	drv, err := servicectl.NewDriver(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Install, register, and start the daemon
//	err = drv.Install(context.Background(), false)
//
//	// Query current state
//	st, err := drv.Status(context.Background())
//	fmt.Printf("state: %v, pid: %d\n", st.State, st.PID)
//
// # One Descriptor, Three Translations
//
// A single platform-neutral ServiceDescriptor is translated into
// exactly one native artifact by Generate: a systemd unit file, a
// launchd property list, or a Service Control Manager registration.
// Generation is a pure function - identical inputs always produce
// byte-identical output - so install, reinstall, dry-run, and
// validate all share the same code path and golden tests can pin the
// exact native output.
//
// # Design Philosophy
//
// This package prioritizes:
//
//   - One command surface across three incompatible service models
//   - State read fresh from native queries, never cached between calls
//   - Native error text preserved verbatim alongside a typed taxonomy
//   - Deterministic descriptor generation with atomic file writes
//   - Bounded polling for async native state transitions, never
//     unbounded blocking
//
// The tool itself is a short-lived CLI process. The only persistent
// artifacts are the native descriptor, the provisioned directories,
// the service account, and the daemon's keypair, all of which survive
// until an explicit uninstall.
package servicectl
