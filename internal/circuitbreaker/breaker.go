package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit is open and calls are being
// rejected without reaching the backend.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	// StateClosed - normal operation, requests pass through
	StateClosed State = iota

	// StateOpen - circuit is open, requests fail immediately
	StateOpen

	// StateHalfOpen - testing if the backend recovered, limited requests allowed
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

type Config struct {
	MaxFailures     int           // Failures before opening (default: 5)
	Timeout         time.Duration // How long to stay open (default: 30s)
	HalfOpenSuccess int           // Successes needed in half-open to close (default: 1)
}

type CircuitBreaker struct {
	mu              sync.Mutex
	state           State
	failures        int
	successes       int
	lastFailureTime time.Time

	maxFailures     int
	timeout         time.Duration
	halfOpenSuccess int
}

func New(cfg Config) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HalfOpenSuccess <= 0 {
		cfg.HalfOpenSuccess = 1
	}

	return &CircuitBreaker{
		maxFailures:     cfg.MaxFailures,
		timeout:         cfg.Timeout,
		halfOpenSuccess: cfg.HalfOpenSuccess,
	}
}

// Call runs fn with breaker protection. While open, calls fail fast with
// ErrCircuitOpen until the timeout elapses and the breaker half-opens.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if !cb.allow() {
		return ErrCircuitOpen
	}

	err := fn()
	cb.record(err == nil)

	return err
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if time.Since(cb.lastFailureTime) <= cb.timeout {
			return false
		}
		cb.state = StateHalfOpen
		cb.successes = 0
	}

	return true
}

func (cb *CircuitBreaker) record(success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !success {
		cb.failures++
		cb.lastFailureTime = time.Now()

		// A single failure while probing re-opens the circuit
		if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
			cb.state = StateOpen
			cb.successes = 0
		}
		return
	}

	switch cb.state {
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.halfOpenSuccess {
			cb.state = StateClosed
			cb.failures = 0
		}
	case StateClosed:
		cb.failures = 0
	}
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset forces the breaker closed, clearing its counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.successes = 0
}
