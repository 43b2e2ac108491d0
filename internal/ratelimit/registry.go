package ratelimit

import (
	"log"
	"sync"
	"time"
)

type bucketEntry struct {
	bucket    *TokenBucket
	createdAt time.Time
}

// Holds one token bucket per key, created lazily on first use. A background
// sweep drops entries older than maxAge so the registry cannot grow without
// bound as distinct clients come and go. An evicted client simply gets a
// fresh, full bucket on its next request.
type Registry struct {
	mu      sync.RWMutex
	buckets map[string]*bucketEntry

	maxAge          time.Duration
	cleanupInterval time.Duration

	stop chan struct{}
	done chan struct{}
	now  func() time.Time
}

func NewRegistry(maxAge, cleanupInterval time.Duration) *Registry {
	return &Registry{
		buckets:         make(map[string]*bucketEntry),
		maxAge:          maxAge,
		cleanupInterval: cleanupInterval,
		now:             time.Now,
	}
}

// Returns the bucket for key, creating it with newBucket on first use.
// Creation never replaces an existing bucket for a live key.
func (r *Registry) GetOrCreate(key string, newBucket func() *TokenBucket) *TokenBucket {
	// Fast path: bucket already exists
	r.mu.RLock()
	entry, ok := r.buckets[key]
	r.mu.RUnlock()
	if ok {
		return entry.bucket
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check under the write lock so concurrent creators for the same
	// key agree on one bucket
	if entry, ok := r.buckets[key]; ok {
		return entry.bucket
	}

	entry = &bucketEntry{
		bucket:    newBucket(),
		createdAt: r.now(),
	}
	r.buckets[key] = entry

	return entry.bucket
}

// Number of live buckets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.buckets)
}

// Starts the background age sweep.
func (r *Registry) Start() {
	if r.stop != nil {
		return
	}

	r.stop = make(chan struct{})
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)

		ticker := time.NewTicker(r.cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				removed := r.sweep()
				if removed > 0 {
					log.Printf("Rate limit registry sweep removed %d stale buckets", removed)
				}
			case <-r.stop:
				return
			}
		}
	}()
}

// Stops the sweeper and waits for it to exit.
func (r *Registry) Stop() {
	if r.stop == nil {
		return
	}

	close(r.stop)
	<-r.done
	r.stop = nil
}

// Removes entries older than maxAge regardless of their token level.
func (r *Registry) sweep() int {
	cutoff := r.now().Add(-r.maxAge)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key, entry := range r.buckets {
		if entry.createdAt.Before(cutoff) {
			delete(r.buckets, key)
			removed++
		}
	}

	return removed
}
