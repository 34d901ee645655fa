package apiclient

import (
	"net/http"
	"sync/atomic"
	"time"
)

// CircuitState is the state of a CircuitBreaker.
type CircuitState int64

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
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures a CircuitBreaker. Zero fields take defaults.
type CircuitBreakerConfig struct {
	// FailureThreshold consecutive failures open the circuit. Default 5.
	FailureThreshold int
	// RecoveryTimeout is how long the circuit stays open before trial calls
	// are let through. Default 30s.
	RecoveryTimeout time.Duration
	// SuccessThreshold trial successes close it again. It also caps how many
	// trial calls a half-open circuit admits. Default 2.
	SuccessThreshold int
}

// CircuitBreaker fails calls fast while the backend is known to be down.
// Transport errors and 5xx responses count as failures.
type CircuitBreaker struct {
	config      CircuitBreakerConfig
	state       atomic.Int64
	failures    atomic.Int64
	successes   atomic.Int64
	lastFailure atomic.Int64
	trials      atomic.Int64
	now         func() time.Time
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = 30 * time.Second
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 2
	}
	return &CircuitBreaker{config: config, now: time.Now}
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitState {
	return CircuitState(cb.state.Load())
}

// Allow reports whether a call may proceed. An open circuit whose recovery
// timeout has elapsed moves to half-open. A half-open circuit admits at most
// SuccessThreshold trial calls and rejects the rest until it closes or reopens.
func (cb *CircuitBreaker) Allow() bool {
	switch cb.State() {
	case StateClosed:
		return true
	case StateHalfOpen:
		return cb.admitTrial()
	case StateOpen:
		elapsed := cb.now().UnixNano() - cb.lastFailure.Load()
		if elapsed < int64(cb.config.RecoveryTimeout) {
			return false
		}
		if cb.state.CompareAndSwap(int64(StateOpen), int64(StateHalfOpen)) {
			cb.successes.Store(0)
		}
		return cb.admitTrial()
	default:
		return false
	}
}

func (cb *CircuitBreaker) admitTrial() bool {
	return cb.trials.Add(1) <= int64(cb.config.SuccessThreshold)
}

// RecordFailure counts a failure and opens the circuit when due.
func (cb *CircuitBreaker) RecordFailure() {
	cb.lastFailure.Store(cb.now().UnixNano())

	switch cb.State() {
	case StateClosed:
		if cb.failures.Add(1) >= int64(cb.config.FailureThreshold) {
			cb.trials.Store(0)
			cb.state.Store(int64(StateOpen))
		}
	case StateHalfOpen:
		cb.trials.Store(0)
		cb.successes.Store(0)
		cb.state.Store(int64(StateOpen))
	}
}

// RecordSuccess resets the failure streak, closing a half-open circuit once
// enough trial calls succeed.
func (cb *CircuitBreaker) RecordSuccess() {
	switch cb.State() {
	case StateClosed:
		cb.failures.Store(0)
	case StateHalfOpen:
		if cb.successes.Add(1) >= int64(cb.config.SuccessThreshold) {
			cb.failures.Store(0)
			cb.successes.Store(0)
			cb.trials.Store(0)
			cb.state.Store(int64(StateClosed))
		}
	}
}

// Middleware returns a Middleware that rejects calls with CIRCUIT_OPEN (503)
// while the circuit is open.
func (cb *CircuitBreaker) Middleware() Middleware {
	return func(req *http.Request, next RoundTripper) (*http.Response, error) {
		if !cb.Allow() {
			return nil, &APIError{
				Message: "Circuit breaker open",
				Status:  http.StatusServiceUnavailable,
				Code:    CodeCircuitOpen,
			}
		}

		resp, err := next.RoundTrip(req)
		if err != nil || (resp != nil && resp.StatusCode >= http.StatusInternalServerError) {
			cb.RecordFailure()
		} else {
			cb.RecordSuccess()
		}
		return resp, err
	}
}
