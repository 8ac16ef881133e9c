package circuitbreaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker_TripsAfterThreshold(t *testing.T) {
	cb := New(3, 1, time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, StateClosed, cb.State())
	assert.True(t, cb.AllowRequest())

	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.AllowRequest())
}

func TestCircuitBreaker_SuccessResetsStreak(t *testing.T) {
	cb := New(2, 1, time.Minute)

	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenAfterCooldown(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := New(1, 2, 30*time.Second).WithClock(func() time.Time { return now })

	var transitions []string
	cb.OnStateChange(func(from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	})

	cb.RecordFailure()
	assert.False(t, cb.AllowRequest())

	now = now.Add(30 * time.Second)
	assert.True(t, cb.AllowRequest())
	assert.Equal(t, StateHalfOpen, cb.State())

	cb.RecordSuccess()
	assert.Equal(t, StateHalfOpen, cb.State())
	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.State())

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := New(1, 1, time.Second).WithClock(func() time.Time { return now })

	cb.RecordFailure()
	now = now.Add(time.Second)
	assert.True(t, cb.AllowRequest())

	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.AllowRequest())
}
