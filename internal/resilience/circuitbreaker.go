// Package resilience provides circuit breaker and provider failover primitives
// for the speech-to-text backends that judge spoken answers.
//
// [CircuitBreaker] is a three-state breaker (closed, open, half-open).
// [FallbackGroup] composes several instances of one provider type, each behind
// its own breaker, so that a failing primary is bypassed in favour of healthy
// fallbacks. [STTFallback] is the stt.Provider built on top of it.
//
// All types are safe for concurrent use.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] when the breaker is in
// the open state and the reset timeout has not yet elapsed.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the current operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed is the normal operating state. All calls are forwarded.
	StateClosed State = iota

	// StateOpen indicates the breaker has tripped due to consecutive failures.
	// Calls are rejected with [ErrCircuitOpen] until the reset timeout elapses.
	StateOpen

	// StateHalfOpen is the probe state entered after the reset timeout. A
	// limited number of calls are let through; if they succeed the breaker
	// closes, otherwise it re-opens.
	StateHalfOpen
)

// String returns the human-readable name of the state.
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

// CircuitBreakerConfig holds tuning knobs for a [CircuitBreaker].
type CircuitBreakerConfig struct {
	// Name is a human-readable label used in log messages.
	Name string

	// MaxFailures is the number of consecutive failures in the closed state
	// before the breaker opens. Default: 5.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open before transitioning to
	// half-open. Default: 30s.
	ResetTimeout time.Duration

	// HalfOpenMax is the number of successful probes needed in the half-open
	// state to close the breaker again. Default: 3.
	HalfOpenMax int

	// IsFailure decides whether an error returned by the protected call counts
	// against the breaker. The default ignores nil and context cancellation,
	// since an abandoned request says nothing about the backend.
	IsFailure func(error) bool

	// OnStateChange, if set, is called after every transition with the lock
	// released.
	OnStateChange func(name string, from, to State)
}

func defaultIsFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

// CircuitBreaker implements the three-state circuit breaker pattern.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig
	now func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	openedAt  time.Time
	probes    int
	successes int
}

// NewCircuitBreaker creates a [CircuitBreaker] with the supplied configuration.
// Zero-value config fields are replaced with defaults.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 3
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = defaultIsFailure
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now, state: StateClosed}
}

// Name returns the configured label.
func (cb *CircuitBreaker) Name() string { return cb.cfg.Name }

// Execute runs fn if the breaker allows it. In the open state it returns
// [ErrCircuitOpen] without calling fn. In the half-open state at most
// HalfOpenMax probes may be in flight.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	probe, err := cb.admit()
	if err != nil {
		return err
	}

	callErr := fn()

	cb.mu.Lock()
	from := cb.state
	if cb.cfg.IsFailure(callErr) {
		cb.onFailure(probe)
	} else {
		cb.onSuccess(probe)
	}
	to := cb.state
	cb.mu.Unlock()

	cb.notify(from, to)
	return callErr
}

// admit decides whether a call may proceed and whether it is a half-open probe.
func (cb *CircuitBreaker) admit() (bool, error) {
	cb.mu.Lock()
	from := cb.state
	if cb.state == StateOpen {
		if cb.now().Sub(cb.openedAt) < cb.cfg.ResetTimeout {
			cb.mu.Unlock()
			return false, ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.probes = 0
		cb.successes = 0
		slog.Info("circuit breaker half-open", "name", cb.cfg.Name)
	}
	probe := cb.state == StateHalfOpen
	if probe {
		if cb.probes >= cb.cfg.HalfOpenMax {
			cb.mu.Unlock()
			cb.notify(from, StateHalfOpen)
			return false, ErrCircuitOpen
		}
		cb.probes++
	}
	to := cb.state
	cb.mu.Unlock()
	cb.notify(from, to)
	return probe, nil
}

// onFailure must be called with cb.mu held.
func (cb *CircuitBreaker) onFailure(probe bool) {
	if probe || cb.state == StateHalfOpen {
		cb.trip()
		slog.Warn("circuit breaker re-opened from half-open", "name", cb.cfg.Name)
		return
	}
	cb.failures++
	if cb.failures >= cb.cfg.MaxFailures {
		cb.trip()
		slog.Warn("circuit breaker opened",
			"name", cb.cfg.Name,
			"consecutive_failures", cb.failures)
	}
}

// onSuccess must be called with cb.mu held.
func (cb *CircuitBreaker) onSuccess(probe bool) {
	if !probe {
		cb.failures = 0
		return
	}
	if cb.state != StateHalfOpen {
		return
	}
	cb.successes++
	if cb.successes >= cb.cfg.HalfOpenMax {
		cb.state = StateClosed
		cb.failures = 0
		slog.Info("circuit breaker closed after successful probes", "name", cb.cfg.Name)
	}
}

func (cb *CircuitBreaker) trip() {
	cb.state = StateOpen
	cb.openedAt = cb.now()
	cb.failures = cb.cfg.MaxFailures
}

func (cb *CircuitBreaker) notify(from, to State) {
	if from != to && cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.cfg.Name, from, to)
	}
}

// State returns the current [State] of the breaker. An open breaker whose reset
// timeout has elapsed reports [StateHalfOpen]; the actual transition happens on
// the next [CircuitBreaker.Execute] call.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.cfg.ResetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Reset forces the breaker back to [StateClosed], clearing all counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	from := cb.state
	cb.state = StateClosed
	cb.failures = 0
	cb.probes = 0
	cb.successes = 0
	cb.mu.Unlock()

	slog.Info("circuit breaker manually reset", "name", cb.cfg.Name)
	cb.notify(from, StateClosed)
}
