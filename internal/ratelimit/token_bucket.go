package ratelimit

import (
	"sync"
	"time"
)

// A single rate limit counter with greedy refill. Safe for concurrent use;
// each bucket carries its own lock so contention stays per-key.
type TokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	tokens     float64
	refillRate float64 // tokens per second
	lastRefill time.Time

	now func() time.Time
}

// Creates a bucket that starts full and refills back to capacity over period.
func NewTokenBucket(capacity int, period time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		refillRate: float64(capacity) / period.Seconds(),
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

func (b *TokenBucket) TryConsume(n int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()

	if b.tokens >= float64(n) {
		b.tokens -= float64(n)
		return true
	}

	// No partial consumption
	return false
}

// Returns the current token count after applying any pending refill.
func (b *TokenBucket) Available() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()
	return b.tokens
}

// Returns how long until one token becomes available. Zero when a consume
// would succeed right now.
func (b *TokenBucket) RetryAfter() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()

	if b.tokens >= 1 {
		return 0
	}

	missing := 1 - b.tokens
	return time.Duration(missing / b.refillRate * float64(time.Second))
}

// Adds tokens for the time elapsed since the last refill, capped at
// capacity. Caller must hold the lock.
func (b *TokenBucket) refill() {
	now := b.now()
	elapsed := now.Sub(b.lastRefill).Seconds()

	if elapsed < 0 {
		// Clock went backwards; reset the reference point without refilling
		b.lastRefill = now
		return
	}

	b.tokens += elapsed * b.refillRate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = now
}
