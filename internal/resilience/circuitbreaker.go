// Package resilience re-homes the teacher's generic circuit breaker to a
// per-source scope: after a source accumulates too many consecutive fetch
// failures, the breaker opens and further fetches for that source fail
// fast until its reset timeout elapses, instead of burning the retry
// budget against a target that is clearly down or blocking.
package resilience

import (
	"sync"
	"time"
)

// State is one of the three circuit breaker states.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// Config configures one source's circuit breaker.
type Config struct {
	MaxFailures      int
	ResetTimeout     time.Duration
	SuccessThreshold int // consecutive half-open successes needed to close
}

// DefaultConfig mirrors the teacher's defaults.
func DefaultConfig() Config {
	return Config{MaxFailures: 5, ResetTimeout: 60 * time.Second, SuccessThreshold: 1}
}

// CircuitBreaker guards one source. It is created once per source per run
// and held by that source's Orchestrator rather than kept in a
// package-level map.
type CircuitBreaker struct {
	name    string
	cfg     Config
	mu      sync.Mutex
	state   State
	fails   int
	succs   int
	openAt  time.Time
}

// New creates a circuit breaker named after the source it guards.
func New(name string, cfg Config) *CircuitBreaker {
	return &CircuitBreaker{name: name, cfg: cfg, state: Closed}
}

// Allow reports whether a call should be attempted. It transitions Open ->
// HalfOpen once the reset timeout has elapsed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case Open:
		if time.Now().After(cb.openAt.Add(cb.cfg.ResetTimeout)) {
			cb.state = HalfOpen
			cb.succs = 0
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess reports a successful call, closing the circuit from
// HalfOpen once SuccessThreshold consecutive successes are seen.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case HalfOpen:
		cb.succs++
		if cb.succs >= cb.cfg.SuccessThreshold {
			cb.state = Closed
			cb.fails = 0
		}
	case Closed:
		cb.fails = 0
	}
}

// RecordFailure reports a failed call, opening the circuit once
// MaxFailures consecutive failures accumulate (or immediately, from
// HalfOpen, since a failed probe means the source is still down).
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case HalfOpen:
		cb.state = Open
		cb.openAt = time.Now()
	case Closed:
		cb.fails++
		if cb.fails >= cb.cfg.MaxFailures {
			cb.state = Open
			cb.openAt = time.Now()
		}
	}
}

// State reports the breaker's current state, for run_report.json and logs.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
