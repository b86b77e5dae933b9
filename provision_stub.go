//go:build !linux && !darwin && !windows

package servicectl

import "fmt"

func ensureServiceAccount() error {
	return fmt.Errorf("%w: service account provisioning", ErrUnsupportedPlatform)
}

func chownServiceAccount(_ string) error {
	return fmt.Errorf("%w: ownership provisioning", ErrUnsupportedPlatform)
}
