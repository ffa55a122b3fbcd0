// Package audit captures every resolution outcome for later auditing. Events
// are transport-agnostic so sinks can fan out.
package audit

import (
	"time"

	"trustcheck/pkg/domain"
)

// Status classifies how one resolution attempt ended.
type Status string

const (
	StatusSuccess     Status = "success"
	StatusFailure     Status = "failure"
	StatusRateLimited Status = "rate_limited"
	StatusTimeout     Status = "timeout"
	StatusStaleServed Status = "stale_served"
	StatusFallback    Status = "fallback"
	StatusCacheHit    Status = "cache_hit"
)

// ResolutionEvent records one fact-type resolution outcome.
type ResolutionEvent struct {
	EventID    string            `json:"event_id"`
	Timestamp  time.Time         `json:"timestamp"`
	Source     domain.Source     `json:"source"`
	Operation  string            `json:"operation"`
	BusinessID domain.BusinessID `json:"business_id"`
	Status     Status            `json:"status"`
	CacheHit   bool              `json:"cache_hit"`
	LatencyMS  int64             `json:"latency_ms"`
	Error      string            `json:"error,omitempty"`
}

// Publisher is implemented by audit sinks. Emit must never block the
// resolution path.
type Publisher interface {
	Emit(event ResolutionEvent)
}
