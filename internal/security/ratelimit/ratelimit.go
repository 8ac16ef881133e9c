package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a sliding-window limiter keyed by caller identity (client address)
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	maxReqs int
	window  time.Duration
	now     func() time.Time
	cleanup *time.Ticker
	done    chan struct{}
}

type bucket struct {
	requests []time.Time
	lastSeen time.Time
}

// NewLimiter allows maxRequests per key within window
func NewLimiter(maxRequests int, window time.Duration) *Limiter {
	limiter := &Limiter{
		buckets: make(map[string]*bucket),
		maxReqs: maxRequests,
		window:  window,
		now:     time.Now,
		cleanup: time.NewTicker(5 * time.Minute),
		done:    make(chan struct{}),
	}
	go limiter.cleanupOldBuckets()
	return limiter
}

// WithClock replaces the time source; used by tests
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
	return l
}

// Allow records a request for key and reports whether it is within the limit.
// An empty key is never limited.
func (l *Limiter) Allow(key string) bool {
	if key == "" {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, exists := l.buckets[key]
	if !exists {
		b = &bucket{}
		l.buckets[key] = b
	}

	cutoff := now.Add(-l.window)
	kept := b.requests[:0]
	for _, t := range b.requests {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	b.requests = kept
	b.lastSeen = now

	if len(b.requests) >= l.maxReqs {
		return false
	}
	b.requests = append(b.requests, now)
	return true
}

// RetryAfter is the window length, the longest a rejected caller must wait
func (l *Limiter) RetryAfter() time.Duration {
	return l.window
}

func (l *Limiter) cleanupOldBuckets() {
	for {
		select {
		case <-l.done:
			return
		case <-l.cleanup.C:
			l.mu.Lock()
			stale := l.now().Add(-3 * l.window)
			for key, b := range l.buckets {
				if b.lastSeen.Before(stale) {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Stop ends the background cleanup
func (l *Limiter) Stop() {
	l.cleanup.Stop()
	close(l.done)
}
