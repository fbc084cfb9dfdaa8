package webhook

import (
	"sync"
	"time"
)

// CircuitState represents the circuit breaker state
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// CircuitBreaker guards one webhook endpoint. Repeated delivery failures
// open the circuit; after a cooldown a single probe is allowed through, and
// consecutive probe successes close it again.
type CircuitBreaker struct {
	mu sync.RWMutex

	state           CircuitState
	failures        int
	probeSuccesses  int
	lastStateChange time.Time

	failureThreshold int
	successThreshold int
	cooldown         time.Duration
}

// NewCircuitBreaker creates a circuit breaker with default thresholds
func NewCircuitBreaker() *CircuitBreaker {
	return &CircuitBreaker{
		state:            StateClosed,
		failureThreshold: 5,
		successThreshold: 2,
		cooldown:         60 * time.Second,
		lastStateChange:  time.Now(),
	}
}

// CanAttempt reports whether a delivery may be attempted now. An open
// circuit transitions to half-open once the cooldown has elapsed.
func (cb *CircuitBreaker) CanAttempt() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if time.Since(cb.lastStateChange) < cb.cooldown {
			return false
		}
		cb.state = StateHalfOpen
		cb.failures = 0
		cb.probeSuccesses = 0
	}
	return true
}

// RecordSuccess notes a successful delivery
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.probeSuccesses++
		if cb.probeSuccesses >= cb.successThreshold {
			cb.transition(StateClosed)
		}
	}
}

// RecordFailure notes a failed delivery
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++

	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.failureThreshold {
			cb.transition(StateOpen)
		}
	case StateHalfOpen:
		cb.transition(StateOpen)
	}
}

// State returns the current circuit state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// transition must be called with cb.mu held
func (cb *CircuitBreaker) transition(to CircuitState) {
	cb.state = to
	cb.failures = 0
	cb.probeSuccesses = 0
	cb.lastStateChange = time.Now()
}
