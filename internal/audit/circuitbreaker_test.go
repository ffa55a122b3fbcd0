package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker(t *testing.T) {
	t.Run("starts closed", func(t *testing.T) {
		cb := NewCircuitBreaker(3, time.Minute)
		assert.True(t, cb.Allow())
		assert.False(t, cb.IsOpen())
	})

	t.Run("opens after threshold consecutive failures", func(t *testing.T) {
		cb := NewCircuitBreaker(3, time.Minute)
		cb.RecordFailure()
		cb.RecordFailure()
		assert.True(t, cb.Allow(), "below threshold stays closed")
		cb.RecordFailure()
		assert.True(t, cb.IsOpen())
		assert.False(t, cb.Allow())
	})

	t.Run("success resets the failure count", func(t *testing.T) {
		cb := NewCircuitBreaker(3, time.Minute)
		cb.RecordFailure()
		cb.RecordFailure()
		cb.RecordSuccess()
		cb.RecordFailure()
		cb.RecordFailure()
		assert.False(t, cb.IsOpen())
	})

	t.Run("half-opens after the cooldown", func(t *testing.T) {
		cb := NewCircuitBreaker(1, 10*time.Millisecond)
		cb.RecordFailure()
		assert.False(t, cb.Allow())

		time.Sleep(20 * time.Millisecond)
		assert.True(t, cb.Allow(), "cooldown expired, one attempt allowed")
		assert.False(t, cb.IsOpen())
	})

	t.Run("success after half-open closes fully", func(t *testing.T) {
		cb := NewCircuitBreaker(1, 10*time.Millisecond)
		cb.RecordFailure()
		time.Sleep(20 * time.Millisecond)
		assert.True(t, cb.Allow())
		cb.RecordSuccess()
		assert.True(t, cb.Allow())
		assert.False(t, cb.IsOpen())
	})
}
