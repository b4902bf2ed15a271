package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

type entry struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is the in-process limiter. All state lives in one
// mutex-guarded map, so concurrent checks on the same identifier
// serialize their read-check-increment sequence. Expired entries are
// swept opportunistically (about 1% of checks); unbounded growth between
// sweeps is only memory pressure, never a correctness issue.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*entry

	// now is overridable in tests
	now func() time.Time
}

// NewMemoryLimiter creates an empty in-process limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Check implements Limiter.
func (l *MemoryLimiter) Check(_ context.Context, identifier string, max int, window time.Duration) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if rand.Float64() < 0.01 {
		l.sweepLocked(now)
	}

	e, ok := l.entries[identifier]
	if !ok || now.After(e.resetAt) {
		// First action in the window, or a stale entry: replace wholesale
		l.entries[identifier] = &entry{count: 1, resetAt: now.Add(window)}
		return Result{Allowed: true, Remaining: max - 1, ResetIn: window}, nil
	}

	if e.count >= max {
		return Result{Allowed: false, Remaining: 0, ResetIn: e.resetAt.Sub(now)}, nil
	}

	e.count++
	return Result{Allowed: true, Remaining: max - e.count, ResetIn: e.resetAt.Sub(now)}, nil
}

func (l *MemoryLimiter) sweepLocked(now time.Time) {
	for key, e := range l.entries {
		if now.After(e.resetAt) {
			delete(l.entries, key)
		}
	}
}
