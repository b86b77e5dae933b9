//go:build !windows

package servicectl

import "fmt"

// newDriverSCM is unavailable off Windows; the factory never selects
// it there, this stub only satisfies the compiler.
func newDriverSCM(_ *Config) (Driver, error) {
	return nil, fmt.Errorf("%w: SCM driver requires windows", ErrUnsupportedPlatform)
}
