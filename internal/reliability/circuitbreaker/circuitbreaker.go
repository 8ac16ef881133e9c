package circuitbreaker

import (
	"sync"
	"sync/atomic"
	"time"
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker provides fast-fail behavior when a dependency fails repeatedly
type CircuitBreaker struct {
	state            atomic.Value
	failureCount     atomic.Int32
	successCount     atomic.Int32
	openedAt         atomic.Value
	failureThreshold int32
	successThreshold int32
	cooldown         time.Duration
	now              func() time.Time
	mu               sync.RWMutex
	onStateChange    func(from, to State)
}

// New creates a breaker that opens after failureThreshold consecutive failures,
// probes again after cooldown, and closes after successThreshold probe successes.
func New(failureThreshold, successThreshold int32, cooldown time.Duration) *CircuitBreaker {
	cb := &CircuitBreaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		cooldown:         cooldown,
		now:              time.Now,
		onStateChange:    func(_, _ State) {},
	}
	cb.state.Store(StateClosed)
	return cb
}

// WithClock replaces the time source; used by tests
func (cb *CircuitBreaker) WithClock(now func() time.Time) *CircuitBreaker {
	cb.now = now
	return cb
}

// OnStateChange registers a callback for state transitions
func (cb *CircuitBreaker) OnStateChange(fn func(from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

// RecordSuccess resets the failure streak and may close a half-open circuit
func (cb *CircuitBreaker) RecordSuccess() {
	switch cb.State() {
	case StateHalfOpen:
		if cb.successCount.Add(1) >= cb.successThreshold {
			cb.reset(StateClosed)
		}
	case StateClosed:
		cb.failureCount.Store(0)
	}
}

// RecordFailure extends the failure streak and may trip the circuit
func (cb *CircuitBreaker) RecordFailure() {
	switch cb.State() {
	case StateClosed:
		if cb.failureCount.Add(1) >= cb.failureThreshold {
			cb.trip()
		}
	case StateHalfOpen:
		cb.trip()
	}
}

// AllowRequest reports whether a call may proceed. An open circuit moves to
// half-open once the cooldown has elapsed.
func (cb *CircuitBreaker) AllowRequest() bool {
	if cb.State() != StateOpen {
		return true
	}
	openedAt, ok := cb.openedAt.Load().(time.Time)
	if !ok {
		return false
	}
	if cb.now().Sub(openedAt) >= cb.cooldown {
		cb.reset(StateHalfOpen)
		return true
	}
	return false
}

// State returns the current state
func (cb *CircuitBreaker) State() State {
	return cb.state.Load().(State)
}

func (cb *CircuitBreaker) trip() {
	cb.openedAt.Store(cb.now())
	cb.reset(StateOpen)
}

func (cb *CircuitBreaker) reset(to State) {
	cb.failureCount.Store(0)
	cb.successCount.Store(0)
	cb.setState(to)
}

// setState transitions to a new state and calls the callback
func (cb *CircuitBreaker) setState(newState State) {
	oldState := cb.State()
	if oldState == newState {
		return
	}
	cb.state.Store(newState)
	cb.mu.RLock()
	fn := cb.onStateChange
	cb.mu.RUnlock()
	if fn != nil {
		fn(oldState, newState)
	}
}
