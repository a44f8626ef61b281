package llm

import (
	"sync"
	"time"
)

// Breaker states.
const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half-open"
)

// CircuitBreaker isolates a failing provider: after failureThreshold
// consecutive failures it opens and attempts are skipped without touching
// the provider; after timeout it lets one probe through half-open. The
// breaker is shared across all invocations for the client's lifetime and
// is safe for concurrent use.
type CircuitBreaker struct {
	mu               sync.Mutex
	failureThreshold int
	timeout          time.Duration
	failureCount     int
	lastFailure      time.Time
	state            string
	now              func() time.Time
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(failureThreshold int, timeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		timeout:          timeout,
		state:            StateClosed,
		now:              time.Now,
	}
}

// IsOpen reports whether calls should be skipped. An open breaker whose
// timeout has elapsed flips to half-open and admits the next attempt as a
// probe.
func (b *CircuitBreaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen {
		if b.now().Sub(b.lastFailure) > b.timeout {
			b.state = StateHalfOpen
			return false
		}
		return true
	}
	return false
}

// RecordSuccess closes the breaker and clears the failure count.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount = 0
	b.state = StateClosed
}

// RecordFailure counts one failure and reports whether this call opened
// the breaker.
func (b *CircuitBreaker) RecordFailure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount++
	b.lastFailure = b.now()
	if b.failureCount >= b.failureThreshold && b.state != StateOpen {
		b.state = StateOpen
		return true
	}
	return false
}

// State returns the current breaker state.
func (b *CircuitBreaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
