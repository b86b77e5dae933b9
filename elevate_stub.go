//go:build !linux && !darwin && !windows

package servicectl

import (
	"context"
	"fmt"
)

func isElevated() bool { return false }

type stubEscalator struct{}

func newEscalator(_ Platform, _ bool) Escalator {
	return &stubEscalator{}
}

func (e *stubEscalator) EnsureElevated(_ context.Context, reason string) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedPlatform, reason)
}
