package resilience

import (
	"testing"
	"time"
)

func TestBreakerOpensAtThreshold(t *testing.T) {
	cb := NewCircuitBreaker("op", BreakerConfig{FailureThreshold: 3, RecoveryTimeout: time.Minute})

	for i := 0; i < 2; i++ {
		cb.RecordFailure()
		if got := cb.State(); got != CircuitClosed {
			t.Fatalf("state after %d failures = %v, want closed", i+1, got)
		}
	}

	cb.RecordFailure()
	if got := cb.State(); got != CircuitOpen {
		t.Fatalf("state after threshold failures = %v, want open", got)
	}
	if cb.Allow() {
		t.Error("open circuit must reject calls")
	}
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker("op", BreakerConfig{FailureThreshold: 3, RecoveryTimeout: time.Minute})

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	if got := cb.Failures(); got != 0 {
		t.Fatalf("failures after success = %d, want 0", got)
	}

	// The count starts over: two more failures must not trip the breaker.
	cb.RecordFailure()
	cb.RecordFailure()
	if got := cb.State(); got != CircuitClosed {
		t.Fatalf("state = %v, want closed", got)
	}
}

func TestBreakerHalfOpenSingleTrial(t *testing.T) {
	cb := NewCircuitBreaker("op", BreakerConfig{FailureThreshold: 1, RecoveryTimeout: 10 * time.Millisecond})

	cb.RecordFailure()
	if cb.Allow() {
		t.Fatal("circuit should be open immediately after tripping")
	}

	time.Sleep(20 * time.Millisecond)

	if !cb.Allow() {
		t.Fatal("expected one trial call after the recovery timeout")
	}
	if got := cb.State(); got != CircuitHalfOpen {
		t.Fatalf("state during trial = %v, want half-open", got)
	}
	if cb.Allow() {
		t.Error("second call during the trial must be rejected")
	}
}

func TestBreakerTrialOutcome(t *testing.T) {
	t.Run("trial success closes", func(t *testing.T) {
		cb := NewCircuitBreaker("op", BreakerConfig{FailureThreshold: 1, RecoveryTimeout: 5 * time.Millisecond})
		cb.RecordFailure()
		time.Sleep(10 * time.Millisecond)

		if !cb.Allow() {
			t.Fatal("trial call not allowed")
		}
		cb.RecordSuccess()
		if got := cb.State(); got != CircuitClosed {
			t.Fatalf("state after trial success = %v, want closed", got)
		}
		if !cb.Allow() {
			t.Error("closed circuit must allow calls")
		}
	})

	t.Run("trial failure reopens", func(t *testing.T) {
		cb := NewCircuitBreaker("op", BreakerConfig{FailureThreshold: 1, RecoveryTimeout: 5 * time.Millisecond})
		cb.RecordFailure()
		time.Sleep(10 * time.Millisecond)

		if !cb.Allow() {
			t.Fatal("trial call not allowed")
		}
		cb.RecordFailure()
		if got := cb.State(); got != CircuitOpen {
			t.Fatalf("state after trial failure = %v, want open", got)
		}
		if cb.Allow() {
			t.Error("reopened circuit must reject calls until the next recovery window")
		}
	})
}

func TestBreakerRegistrySharesInstances(t *testing.T) {
	reg := NewBreakerRegistry(BreakerConfig{FailureThreshold: 2, RecoveryTimeout: time.Minute})

	a := reg.Get("provider")
	b := reg.Get("provider")
	if a != b {
		t.Fatal("registry must return the same breaker per name")
	}

	other := reg.Get("websearch")
	if other == a {
		t.Fatal("different names must get different breakers")
	}
	if !other.Allow() {
		t.Error("a fresh breaker starts closed and allows calls")
	}
}
