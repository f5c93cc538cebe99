package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestCircuitBreaker_BasicTransitions(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC))
	b := NewCircuitBreakerWithClock(CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 2,
		OpenTimeout:      5 * time.Second,
		HalfOpenMaxReq:   1,
	}, clock)

	if err := b.Allow(); err != nil {
		t.Fatalf("expected allow in closed state: %v", err)
	}

	b.RecordFailure()
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("expected closed after first failure, got %s", state)
	}

	b.RecordFailure()
	if state := b.State(); state != CircuitStateOpen {
		t.Fatalf("expected open after threshold failures, got %s", state)
	}

	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected circuit open error, got %v", err)
	}

	clock.Advance(6 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected half-open trial request to pass, got %v", err)
	}
	if state := b.State(); state != CircuitStateHalfOpen {
		t.Fatalf("expected half-open state, got %s", state)
	}

	b.RecordSuccess()
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("expected closed after successful half-open trial request, got %s", state)
	}
}

func TestCircuitBreaker_ExecuteSkipsUncountedErrors(t *testing.T) {
	clock := clockwork.NewFakeClock()
	b := NewCircuitBreakerWithClock(CircuitBreakerConfig{Enabled: true, FailureThreshold: 1}, clock)

	errDenied := errors.New("denied")
	countable := func(err error) bool { return !errors.Is(err, errDenied) }

	for range 3 {
		err := b.Execute(context.Background(), countable, func(context.Context) error { return errDenied })
		if !errors.Is(err, errDenied) {
			t.Fatalf("expected denied error, got %v", err)
		}
	}
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("uncounted errors must not open the breaker, got %s", state)
	}

	_ = b.Execute(context.Background(), countable, func(context.Context) error { return errors.New("timeout") })
	if state := b.State(); state != CircuitStateOpen {
		t.Fatalf("expected open after countable failure, got %s", state)
	}

	called := false
	err := b.Execute(context.Background(), countable, func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Fatalf("open breaker must short-circuit, err=%v called=%v", err, called)
	}
}
