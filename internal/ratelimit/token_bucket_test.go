package ratelimit

import (
	"testing"
	"time"
)

// Pins a bucket's clock so refill is fully deterministic.
func newTestBucket(capacity int, period time.Duration) (*TokenBucket, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	b := NewTokenBucket(capacity, period)
	b.now = func() time.Time { return now }
	b.lastRefill = now

	return b, &now
}

func TestTokenBucket_FullBucketAllowsExactlyCapacity(t *testing.T) {
	b, _ := newTestBucket(5, time.Minute)

	for i := 0; i < 5; i++ {
		if !b.TryConsume(1) {
			t.Fatalf("expected consume %d to succeed", i+1)
		}
	}

	if b.TryConsume(1) {
		t.Fatalf("expected consume beyond capacity to fail without time passing")
	}
}

func TestTokenBucket_RefillRestoresFullBurst(t *testing.T) {
	b, now := newTestBucket(5, time.Minute)

	for i := 0; i < 5; i++ {
		b.TryConsume(1)
	}

	// Waiting one full period restores the whole burst
	*now = now.Add(time.Minute)

	for i := 0; i < 5; i++ {
		if !b.TryConsume(1) {
			t.Fatalf("expected consume %d to succeed after full refill", i+1)
		}
	}

	if b.TryConsume(1) {
		t.Fatalf("refill must not exceed capacity")
	}
}

func TestTokenBucket_PartialRefill(t *testing.T) {
	b, now := newTestBucket(10, 10*time.Second)

	for i := 0; i < 10; i++ {
		b.TryConsume(1)
	}

	// 3 seconds at 1 token/sec
	*now = now.Add(3 * time.Second)

	for i := 0; i < 3; i++ {
		if !b.TryConsume(1) {
			t.Fatalf("expected consume %d to succeed after partial refill", i+1)
		}
	}

	if b.TryConsume(1) {
		t.Fatalf("expected fourth consume to fail after partial refill")
	}
}

func TestTokenBucket_RefillCapsAtCapacity(t *testing.T) {
	b, now := newTestBucket(5, time.Second)

	// Far more idle time than needed for a full refill
	*now = now.Add(time.Hour)

	if got := b.Available(); got != 5 {
		t.Fatalf("expected available to cap at 5, got %v", got)
	}
}

func TestTokenBucket_NoPartialConsumption(t *testing.T) {
	b, _ := newTestBucket(3, time.Minute)

	if b.TryConsume(4) {
		t.Fatalf("expected consume of 4 from bucket of 3 to fail")
	}

	// The failed consume must not have spent anything
	if got := b.Available(); got != 3 {
		t.Fatalf("expected 3 tokens after failed consume, got %v", got)
	}
}

func TestTokenBucket_ClockBackwardsDoesNotRefill(t *testing.T) {
	b, now := newTestBucket(5, time.Minute)

	for i := 0; i < 5; i++ {
		b.TryConsume(1)
	}

	*now = now.Add(-time.Hour)

	if b.TryConsume(1) {
		t.Fatalf("expected no tokens after the clock went backwards")
	}
}

func TestTokenBucket_RetryAfter(t *testing.T) {
	b, _ := newTestBucket(60, time.Minute)

	if got := b.RetryAfter(); got != 0 {
		t.Fatalf("expected zero retry-after on a full bucket, got %v", got)
	}

	for i := 0; i < 60; i++ {
		b.TryConsume(1)
	}

	// 1 token/sec refill: one token is a second away
	if got := b.RetryAfter(); got != time.Second {
		t.Fatalf("expected retry-after of 1s, got %v", got)
	}
}

func TestTokenBucket_ConcurrentConsumeNeverOverspends(t *testing.T) {
	b := NewTokenBucket(100, time.Hour)

	results := make(chan bool, 200)
	for i := 0; i < 200; i++ {
		go func() {
			results <- b.TryConsume(1)
		}()
	}

	allowed := 0
	for i := 0; i < 200; i++ {
		if <-results {
			allowed++
		}
	}

	if allowed != 100 {
		t.Fatalf("expected exactly 100 allowed, got %d", allowed)
	}
}
