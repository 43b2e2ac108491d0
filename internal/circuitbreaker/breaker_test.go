package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

var errBackend = errors.New("backend down")

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := New(Config{MaxFailures: 3, Timeout: time.Minute})

	for i := 0; i < 3; i++ {
		if err := cb.Call(func() error { return errBackend }); !errors.Is(err, errBackend) {
			t.Fatalf("call %d: expected the backend error, got %v", i+1, err)
		}
	}

	if cb.State() != StateOpen {
		t.Fatalf("expected open after 3 failures, got %v", cb.State())
	}

	// While open, calls fail fast without touching the backend
	called := false
	err := cb.Call(func() error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Fatalf("expected the backend not to be called while open")
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := New(Config{MaxFailures: 3, Timeout: time.Minute})

	cb.Call(func() error { return errBackend })
	cb.Call(func() error { return errBackend })
	cb.Call(func() error { return nil })
	cb.Call(func() error { return errBackend })
	cb.Call(func() error { return errBackend })

	if cb.State() != StateClosed {
		t.Fatalf("expected closed when failures never reach the threshold, got %v", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := New(Config{MaxFailures: 1, Timeout: 10 * time.Millisecond})

	cb.Call(func() error { return errBackend })
	if cb.State() != StateOpen {
		t.Fatalf("expected open, got %v", cb.State())
	}

	time.Sleep(20 * time.Millisecond)

	// First probe after the timeout reaches the backend and closes the
	// circuit on success
	if err := cb.Call(func() error { return nil }); err != nil {
		t.Fatalf("expected the probe to succeed, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("expected closed after a successful probe, got %v", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := New(Config{MaxFailures: 1, Timeout: 10 * time.Millisecond})

	cb.Call(func() error { return errBackend })
	time.Sleep(20 * time.Millisecond)

	if err := cb.Call(func() error { return errBackend }); !errors.Is(err, errBackend) {
		t.Fatalf("expected the probe to reach the backend, got %v", err)
	}
	if cb.State() != StateOpen {
		t.Fatalf("expected a failed probe to re-open the circuit, got %v", cb.State())
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := New(Config{MaxFailures: 1, Timeout: time.Hour})

	cb.Call(func() error { return errBackend })
	if cb.State() != StateOpen {
		t.Fatalf("expected open, got %v", cb.State())
	}

	cb.Reset()

	if cb.State() != StateClosed {
		t.Fatalf("expected closed after reset, got %v", cb.State())
	}
	if err := cb.Call(func() error { return nil }); err != nil {
		t.Fatalf("expected calls to pass after reset, got %v", err)
	}
}
