package servicectl

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestWaitForStateReachesTarget(t *testing.T) {
	calls := 0
	query := func(ctx context.Context) (Status, error) {
		calls++
		if calls >= 3 {
			return Status{State: StateRunning, PID: 100}, nil
		}
		return Status{State: StateStopped}, nil
	}

	st, err := waitForState(context.Background(), query, StateRunning, time.Second, time.Millisecond)
	if err != nil {
		t.Fatalf("waitForState failed: %v", err)
	}
	if st.State != StateRunning || st.PID != 100 {
		t.Errorf("status = %+v", st)
	}
	if calls != 3 {
		t.Errorf("query called %d times, want 3", calls)
	}
}

func TestWaitForStateImmediate(t *testing.T) {
	query := func(ctx context.Context) (Status, error) {
		return Status{State: StateStopped}, nil
	}
	st, err := waitForState(context.Background(), query, StateStopped, time.Second, time.Millisecond)
	if err != nil {
		t.Fatalf("waitForState failed: %v", err)
	}
	if st.State != StateStopped {
		t.Errorf("state = %v", st.State)
	}
}

func TestWaitForStateTimeout(t *testing.T) {
	query := func(ctx context.Context) (Status, error) {
		return Status{State: StateStopped, Detail: "inactive/dead"}, nil
	}

	_, err := waitForState(context.Background(), query, StateRunning, 30*time.Millisecond, 5*time.Millisecond)
	if !errors.Is(err, ErrTransitionTimeout) {
		t.Fatalf("expected ErrTransitionTimeout, got %v", err)
	}
	// the message names both the wanted and last observed state
	msg := err.Error()
	for _, want := range []string{"installed-running", "installed-stopped"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
}

func TestWaitForStateQueryErrorsTolerated(t *testing.T) {
	calls := 0
	query := func(ctx context.Context) (Status, error) {
		calls++
		if calls < 3 {
			return Status{}, errors.New("transient query failure")
		}
		return Status{State: StateRunning}, nil
	}

	st, err := waitForState(context.Background(), query, StateRunning, time.Second, time.Millisecond)
	if err != nil {
		t.Fatalf("waitForState should ride out transient errors: %v", err)
	}
	if st.State != StateRunning {
		t.Errorf("state = %v", st.State)
	}
}

func TestWaitForStateContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	query := func(ctx context.Context) (Status, error) {
		return Status{State: StateStopped}, nil
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := waitForState(ctx, query, StateRunning, 10*time.Second, 5*time.Millisecond)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
