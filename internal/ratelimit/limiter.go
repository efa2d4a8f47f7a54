// ABOUTME: Thread-safe fixed-window rate limiter keyed by client IP.
// ABOUTME: Guards the unauthenticated login endpoints against abuse.

package ratelimit

import (
	"sync"
	"time"
)

// entry tracks the request count within the current window for one key.
type entry struct {
	count   int
	resetAt time.Time
}

// Limiter provides fixed-window request counting per key. When a key's
// window has elapsed a fresh one starts; within a window requests are
// allowed until the ceiling is hit. A background goroutine periodically
// drops entries whose window has already expired, bounding memory.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	max     int
	window  time.Duration
	done    chan struct{}
	closed  bool
}

// New creates a limiter allowing max requests per key per window.
// A background goroutine sweeps expired windows every minute.
func New(max int, window time.Duration) *Limiter {
	l := &Limiter{
		entries: make(map[string]*entry),
		max:     max,
		window:  window,
		done:    make(chan struct{}),
	}
	go l.sweep()
	return l
}

// Allow records a request for the key and reports whether it is within the
// window's ceiling. The first request of a window always succeeds.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	e, ok := l.entries[key]
	if !ok || !e.resetAt.After(now) {
		l.entries[key] = &entry{count: 1, resetAt: now.Add(l.window)}
		return true
	}

	e.count++
	return e.count <= l.max
}

// sweep runs in a background goroutine, periodically removing entries
// whose window has expired.
func (l *Limiter) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.runSweep()
		case <-l.done:
			return
		}
	}
}

// runSweep removes all expired entries.
func (l *Limiter) runSweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for key, e := range l.entries {
		if !e.resetAt.After(now) {
			delete(l.entries, key)
		}
	}
}

// Len returns the number of tracked keys. Used by tests and diagnostics.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Close stops the background sweep goroutine. Safe to call multiple times.
func (l *Limiter) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.closed {
		close(l.done)
		l.closed = true
	}
}
