package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Sink delivers a serialized event. The done callback fires once with the
// delivery result, nil on success.
type Sink interface {
	Publish(ctx context.Context, key, payload []byte, done func(error))
}

// Trail is the in-process audit pipeline: Emit enqueues without blocking and
// a background worker drains the inbox into the sink. When the sink is down
// the circuit opens and events fall back to structured logs, so an audit
// outage never degrades resolution latency.
type Trail struct {
	sink    Sink
	breaker *CircuitBreaker
	logger  *slog.Logger
	inbox   chan ResolutionEvent
}

type TrailOption func(*Trail)

func WithTrailLogger(logger *slog.Logger) TrailOption {
	return func(t *Trail) { t.logger = logger }
}

func WithBreaker(breaker *CircuitBreaker) TrailOption {
	return func(t *Trail) { t.breaker = breaker }
}

func WithInboxSize(n int) TrailOption {
	return func(t *Trail) {
		if n > 0 {
			t.inbox = make(chan ResolutionEvent, n)
		}
	}
}

// NewTrail builds a trail around the given sink. A nil sink sends every
// event to the log fallback.
func NewTrail(sink Sink, opts ...TrailOption) *Trail {
	t := &Trail{
		sink:    sink,
		breaker: NewCircuitBreaker(5, time.Minute),
		logger:  slog.Default(),
		inbox:   make(chan ResolutionEvent, 1024),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Emit enqueues an event, stamping its ID and timestamp if unset. When the
// inbox is full the event is logged and dropped rather than blocking the
// caller.
func (t *Trail) Emit(event ResolutionEvent) {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case t.inbox <- event:
	default:
		t.logger.Warn("audit inbox full, dropping event",
			"source", event.Source, "business_id", event.BusinessID, "status", event.Status)
	}
}

// Run drains the inbox until the context is cancelled, then flushes whatever
// is still queued.
func (t *Trail) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			t.drain()
			return ctx.Err()
		case event := <-t.inbox:
			t.publish(ctx, event)
		}
	}
}

func (t *Trail) drain() {
	for {
		select {
		case event := <-t.inbox:
			t.logEvent("audit event flushed to log on shutdown", event)
		default:
			return
		}
	}
}

func (t *Trail) publish(ctx context.Context, event ResolutionEvent) {
	if t.sink == nil || !t.breaker.Allow() {
		t.logEvent("audit event", event)
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		t.logger.Error("marshal audit event", "error", err)
		return
	}

	t.sink.Publish(ctx, []byte(event.BusinessID), payload, func(err error) {
		if err != nil {
			t.breaker.RecordFailure()
			t.logger.Warn("audit publish failed, falling back to log", "error", err)
			t.logEvent("audit event", event)
			return
		}
		t.breaker.RecordSuccess()
	})
}

func (t *Trail) logEvent(msg string, event ResolutionEvent) {
	t.logger.Info(msg,
		"source", event.Source,
		"operation", event.Operation,
		"business_id", event.BusinessID,
		"status", event.Status,
		"cache_hit", event.CacheHit,
		"latency_ms", event.LatencyMS,
		"error", event.Error,
	)
}
