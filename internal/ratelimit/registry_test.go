package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestRegistry_GetOrCreateReturnsSameBucket(t *testing.T) {
	r := NewRegistry(time.Hour, time.Minute)

	first := r.GetOrCreate("10.0.0.1_NORMAL", func() *TokenBucket {
		return NewTokenBucket(10, time.Minute)
	})
	second := r.GetOrCreate("10.0.0.1_NORMAL", func() *TokenBucket {
		return NewTokenBucket(10, time.Minute)
	})

	if first != second {
		t.Fatalf("expected the same bucket for the same key")
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 bucket, got %d", r.Len())
	}
}

func TestRegistry_DistinctKeysGetDistinctBuckets(t *testing.T) {
	r := NewRegistry(time.Hour, time.Minute)

	a := r.GetOrCreate("a", func() *TokenBucket { return NewTokenBucket(1, time.Minute) })
	b := r.GetOrCreate("b", func() *TokenBucket { return NewTokenBucket(1, time.Minute) })

	if a == b {
		t.Fatalf("expected distinct buckets for distinct keys")
	}

	a.TryConsume(1)
	if !b.TryConsume(1) {
		t.Fatalf("consuming from one key must not affect another")
	}
}

func TestRegistry_ConcurrentCreatorsAgreeOnOneBucket(t *testing.T) {
	r := NewRegistry(time.Hour, time.Minute)

	const workers = 50
	buckets := make([]*TokenBucket, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			buckets[i] = r.GetOrCreate("shared", func() *TokenBucket {
				return NewTokenBucket(5, time.Minute)
			})
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if buckets[i] != buckets[0] {
			t.Fatalf("worker %d got a different bucket", i)
		}
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 bucket after concurrent creation, got %d", r.Len())
	}
}

func TestRegistry_SweepEvictsByAgeOnly(t *testing.T) {
	r := NewRegistry(30*time.Minute, time.Minute)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	// A bucket that still has every token is evicted once old enough
	for i := 0; i < 5; i++ {
		r.GetOrCreate(fmt.Sprintf("old-%d", i), func() *TokenBucket {
			return NewTokenBucket(10, time.Minute)
		})
	}

	now = now.Add(20 * time.Minute)
	r.GetOrCreate("young", func() *TokenBucket {
		return NewTokenBucket(10, time.Minute)
	})

	now = now.Add(15 * time.Minute)
	removed := r.sweep()

	if removed != 5 {
		t.Fatalf("expected 5 evictions, got %d", removed)
	}
	if r.Len() != 1 {
		t.Fatalf("expected only the young bucket to remain, got %d", r.Len())
	}
}

func TestRegistry_EvictedKeyGetsFreshBucket(t *testing.T) {
	r := NewRegistry(time.Minute, time.Minute)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	old := r.GetOrCreate("client", func() *TokenBucket {
		return NewTokenBucket(1, time.Minute)
	})
	old.TryConsume(1)

	now = now.Add(2 * time.Minute)
	r.sweep()

	fresh := r.GetOrCreate("client", func() *TokenBucket {
		return NewTokenBucket(1, time.Minute)
	})

	if fresh == old {
		t.Fatalf("expected a new bucket after eviction")
	}
	if !fresh.TryConsume(1) {
		t.Fatalf("expected the replacement bucket to start full")
	}
}

func TestRegistry_StartStop(t *testing.T) {
	r := NewRegistry(time.Hour, 10*time.Millisecond)

	r.Start()
	r.Start() // second start is a no-op

	time.Sleep(25 * time.Millisecond)

	r.Stop()
	r.Stop() // second stop is a no-op
}
