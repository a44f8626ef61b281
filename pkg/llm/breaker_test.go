package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker(t *testing.T) {
	t.Run("should start closed", func(t *testing.T) {
		b := NewCircuitBreaker(3, time.Minute)
		assert.Equal(t, StateClosed, b.State())
		assert.False(t, b.IsOpen())
	})

	t.Run("should open after threshold consecutive failures", func(t *testing.T) {
		b := NewCircuitBreaker(3, time.Minute)
		assert.False(t, b.RecordFailure())
		assert.False(t, b.RecordFailure())
		assert.True(t, b.RecordFailure())
		assert.Equal(t, StateOpen, b.State())
		assert.True(t, b.IsOpen())
	})

	t.Run("should report opening only once", func(t *testing.T) {
		b := NewCircuitBreaker(2, time.Minute)
		b.RecordFailure()
		assert.True(t, b.RecordFailure())
		assert.False(t, b.RecordFailure())
	})

	t.Run("should reset failure count on success", func(t *testing.T) {
		b := NewCircuitBreaker(3, time.Minute)
		b.RecordFailure()
		b.RecordFailure()
		b.RecordSuccess()
		assert.False(t, b.RecordFailure())
		assert.False(t, b.RecordFailure())
		assert.Equal(t, StateClosed, b.State())
	})

	t.Run("should flip to half-open after timeout and admit a probe", func(t *testing.T) {
		b := NewCircuitBreaker(1, time.Minute)
		current := time.Unix(1000, 0)
		b.now = func() time.Time { return current }

		b.RecordFailure()
		assert.True(t, b.IsOpen())

		current = current.Add(30 * time.Second)
		assert.True(t, b.IsOpen())

		current = current.Add(31 * time.Second)
		assert.False(t, b.IsOpen())
		assert.Equal(t, StateHalfOpen, b.State())
	})

	t.Run("should close from half-open on a successful probe", func(t *testing.T) {
		b := NewCircuitBreaker(1, time.Minute)
		current := time.Unix(1000, 0)
		b.now = func() time.Time { return current }

		b.RecordFailure()
		current = current.Add(2 * time.Minute)
		assert.False(t, b.IsOpen())

		b.RecordSuccess()
		assert.Equal(t, StateClosed, b.State())
		assert.False(t, b.IsOpen())
	})

	t.Run("should reopen from half-open on a failed probe", func(t *testing.T) {
		b := NewCircuitBreaker(1, time.Minute)
		current := time.Unix(1000, 0)
		b.now = func() time.Time { return current }

		b.RecordFailure()
		current = current.Add(2 * time.Minute)
		assert.False(t, b.IsOpen())

		assert.True(t, b.RecordFailure())
		assert.True(t, b.IsOpen())
	})
}
