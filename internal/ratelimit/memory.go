package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	window int64
	count  int
}

// MemoryLimiter implements a fixed-window in-memory rate limiter. Counters
// are local to the process.
type MemoryLimiter struct {
	mu        sync.Mutex
	limit     int
	size      time.Duration
	counters  map[string]*memoryEntry
	lastSweep int64
}

func NewMemoryLimiter(limit int, size time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:    limit,
		size:     size,
		counters: make(map[string]*memoryEntry),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, now time.Time) (Result, error) {
	if l.limit <= 0 || l.size <= 0 || key == "" {
		return Result{Allowed: true}, nil
	}
	idx, reset := window(now, l.size)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(idx)

	entry := l.counters[key]
	if entry == nil {
		entry = &memoryEntry{window: idx}
		l.counters[key] = entry
	}
	if entry.window != idx {
		entry.window = idx
		entry.count = 0
	}
	if entry.count >= l.limit {
		return Result{Allowed: false, Remaining: 0, Reset: reset}, nil
	}
	entry.count++
	return Result{Allowed: true, Remaining: l.limit - entry.count, Reset: reset}, nil
}

// sweep drops counters from past windows, at most once per window.
func (l *MemoryLimiter) sweep(idx int64) {
	if l.lastSweep == idx {
		return
	}
	l.lastSweep = idx
	for key, entry := range l.counters {
		if entry.window < idx {
			delete(l.counters, key)
		}
	}
}
