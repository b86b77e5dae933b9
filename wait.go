package servicectl

import (
	"context"
	"fmt"
	"time"
)

// statusFunc queries the current native state.
type statusFunc func(ctx context.Context) (Status, error)

// waitForState polls query until the service reaches target or the
// deadline passes. None of the three native service managers confirms
// start/stop synchronously, so a bounded poll with a fixed sleep is
// the only portable way to observe the transition. A deadline miss is
// reported as ErrTransitionTimeout, distinct from a hard native
// failure, because the service may still converge shortly after.
func waitForState(ctx context.Context, query statusFunc, target ServiceState, timeout, interval time.Duration) (Status, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	deadline := time.Now().Add(timeout)
	var last Status

	for {
		st, err := query(ctx)
		if err == nil {
			last = st
			if st.State == target {
				return st, nil
			}
		}

		if time.Now().After(deadline) {
			return last, fmt.Errorf("%w: wanted %s, last observed %s after %s",
				ErrTransitionTimeout, target, last.State, timeout)
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-time.After(interval):
		}
	}
}
