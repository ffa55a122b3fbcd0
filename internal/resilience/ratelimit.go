package resilience

import (
	"context"
	"sync"
	"time"

	"trustcheck/pkg/domain"
)

// Limiter spaces requests to one external source by a minimum interval.
// Concurrent callers serialize: the mutex is held across the wait, so later
// callers queue behind earlier ones in FIFO order.
type Limiter struct {
	mu          sync.Mutex
	minInterval time.Duration
	last        time.Time
}

// NewLimiter creates a limiter with the given minimum spacing.
func NewLimiter(minInterval time.Duration) *Limiter {
	return &Limiter{minInterval: minInterval}
}

// Wait blocks until at least the minimum interval has elapsed since the
// previous request through this limiter, or until ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.last.IsZero() {
		if wait := l.minInterval - time.Since(l.last); wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	l.last = time.Now()
	return nil
}

// LimiterRegistry holds one limiter per external source. It is constructed
// at wiring time and injected, never accessed as ambient global state, so
// tests get clean per-test isolation.
type LimiterRegistry struct {
	limiters map[domain.Source]*Limiter
}

// NewLimiterRegistry builds a registry from per-source intervals.
func NewLimiterRegistry(intervals map[domain.Source]time.Duration) *LimiterRegistry {
	limiters := make(map[domain.Source]*Limiter, len(intervals))
	for source, interval := range intervals {
		limiters[source] = NewLimiter(interval)
	}
	return &LimiterRegistry{limiters: limiters}
}

// For returns the limiter for a source. Unknown sources get an unlimited
// pass-through limiter so a wiring gap degrades to no pacing, not a panic.
func (r *LimiterRegistry) For(source domain.Source) *Limiter {
	if l, ok := r.limiters[source]; ok {
		return l
	}
	return NewLimiter(0)
}
