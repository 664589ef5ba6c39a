// Package admission gates requests before any expensive work happens.
//
// It provides a sliding-window rate limiter keyed by client identity. Body
// size guards live in the HTTP layer (http.MaxBytesReader) and the image
// codec; this package only decides whether a request may proceed at all.
package admission

import (
	"context"
	"sync"
	"time"
)

// Limiter is a sliding-window rate limiter. Each key gets at most `limit`
// admitted requests per rolling window; rejected requests do not count
// against the window.
//
// Timestamps are pruned lazily on each check, so idle keys cost nothing
// until Cleanup or their next request.
//
// Thread safety is provided via sync.Mutex for concurrent access.
type Limiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	limit  int
	window time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewLimiter creates a Limiter admitting up to limit requests per key per
// sliding window.
func NewLimiter(limit int, window time.Duration) *Limiter {
	return &Limiter{
		hits:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow checks whether the key may proceed and records the request if so.
// Returns (true, 0) when admitted, or (false, retryAfter) when the key has
// exhausted its window. retryAfter is the time until the oldest counted
// request slides out of the window.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := l.prune(key, now)

	if len(recent) >= l.limit {
		retryAfter := recent[0].Add(l.window).Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		l.hits[key] = recent
		return false, retryAfter
	}

	l.hits[key] = append(recent, now)
	return true, 0
}

// Remaining returns how many requests the key has left in the current
// window. This is useful for rate limit response headers.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.prune(key, l.now())
	l.hits[key] = recent

	remaining := l.limit - len(recent)
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// prune drops timestamps that have slid out of the window. Caller must
// hold mu.
func (l *Limiter) prune(key string, now time.Time) []time.Time {
	recent := l.hits[key]
	cutoff := now.Add(-l.window)
	keep := 0
	for keep < len(recent) && !recent[keep].After(cutoff) {
		keep++
	}
	return recent[keep:]
}

// Cleanup removes keys whose every timestamp has expired and returns the
// number of keys removed. Call periodically to bound memory on churny
// client populations; use StartCleanupTicker for automatic cleanup.
func (l *Limiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	removed := 0
	for key, recent := range l.hits {
		if len(recent) == 0 || !recent[len(recent)-1].After(cutoff) {
			delete(l.hits, key)
			removed++
		}
	}
	return removed
}

// StartCleanupTicker starts a background goroutine that periodically calls
// Cleanup. The ticker stops when the provided context is cancelled.
func (l *Limiter) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Cleanup()
			}
		}
	}()
}

// Keys returns the current number of tracked keys.
// This is useful for monitoring and debugging.
func (l *Limiter) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hits)
}
