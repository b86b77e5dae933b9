//go:build windows

package servicectl

// The daemon runs as LocalSystem on Windows; no dedicated account is
// created and directory ownership follows the installing principal.

func ensureServiceAccount() error { return nil }

func chownServiceAccount(_ string) error { return nil }
