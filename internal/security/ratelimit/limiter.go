package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a sliding-window per-caller rate limiter. Callers are keyed by
// user id once authenticated, falling back to remote address.
type Limiter struct {
	mu      sync.RWMutex
	buckets map[string]*bucket
	maxReqs int
	window  time.Duration
	cleanup *time.Ticker
}

type bucket struct {
	requests []time.Time
	lastSeen time.Time
}

func NewLimiter(maxRequests int, window time.Duration) *Limiter {
	limiter := &Limiter{
		buckets: make(map[string]*bucket),
		maxReqs: maxRequests,
		window:  window,
		cleanup: time.NewTicker(5 * time.Minute),
	}
	go limiter.cleanupOldBuckets()
	return limiter
}

func (l *Limiter) Allow(callerID string) bool {
	if callerID == "" {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allowLocked(callerID, l.maxReqs, l.window)
}

// AllowStrict applies a tighter limit for sensitive endpoints like document
// upload, tracked separately from the general bucket.
func (l *Limiter) AllowStrict(callerID string, maxReqs int, window time.Duration) bool {
	if callerID == "" {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allowLocked("strict:"+callerID, maxReqs, window)
}

func (l *Limiter) allowLocked(key string, maxReqs int, window time.Duration) bool {
	now := time.Now()
	b, exists := l.buckets[key]
	if !exists {
		b = &bucket{requests: []time.Time{}}
		l.buckets[key] = b
	}

	cutoff := now.Add(-window)
	var reqs []time.Time
	for _, t := range b.requests {
		if t.After(cutoff) {
			reqs = append(reqs, t)
		}
	}
	b.requests = reqs
	b.lastSeen = now

	if len(b.requests) >= maxReqs {
		return false
	}

	b.requests = append(b.requests, now)
	return true
}

func (l *Limiter) cleanupOldBuckets() {
	for range l.cleanup.C {
		l.mu.Lock()
		staleThreshold := time.Now().Add(-15 * time.Minute)
		for key, b := range l.buckets {
			if b.lastSeen.Before(staleThreshold) {
				delete(l.buckets, key)
			}
		}
		l.mu.Unlock()
	}
}

func (l *Limiter) Stop() {
	l.cleanup.Stop()
}
