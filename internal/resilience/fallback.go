package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every entry in a [FallbackGroup] fails or has an
// open circuit breaker.
var ErrAllFailed = errors.New("all providers failed")

// FallbackConfig configures the per-entry circuit breaker created for each
// provider in a [FallbackGroup]. The Name field of CircuitBreaker is replaced
// by the entry name.
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// EntryStatus is a point-in-time view of one group entry.
type EntryStatus struct {
	Name  string
	State State
}

type fallbackEntry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup wraps a primary and zero or more fallback instances of the same
// provider type. When the primary fails (or its circuit breaker is open), the
// next healthy fallback is tried in registration order.
//
// Entries must be registered before the group is shared between goroutines;
// after that the group is safe for concurrent use.
type FallbackGroup[T any] struct {
	entries []fallbackEntry[T]
	cfg     FallbackConfig
}

// NewFallbackGroup creates a [FallbackGroup] with primary as the first entry.
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	fg := &FallbackGroup[T]{cfg: cfg}
	fg.AddFallback(primaryName, primary)
	return fg
}

// AddFallback appends a fallback provider. Fallbacks are tried in the order they
// are added, after the primary.
func (fg *FallbackGroup[T]) AddFallback(name string, fallback T) {
	cbCfg := fg.cfg.CircuitBreaker
	cbCfg.Name = name
	fg.entries = append(fg.entries, fallbackEntry[T]{
		name:    name,
		value:   fallback,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// Len returns the number of registered entries.
func (fg *FallbackGroup[T]) Len() int { return len(fg.entries) }

// Status reports the breaker state of every entry in registration order.
func (fg *FallbackGroup[T]) Status() []EntryStatus {
	out := make([]EntryStatus, len(fg.entries))
	for i := range fg.entries {
		out[i] = EntryStatus{Name: fg.entries[i].name, State: fg.entries[i].breaker.State()}
	}
	return out
}

// Healthy reports whether at least one entry would accept a call right now.
func (fg *FallbackGroup[T]) Healthy() bool {
	for i := range fg.entries {
		if fg.entries[i].breaker.State() != StateOpen {
			return true
		}
	}
	return false
}

// Execute tries fn against each entry in order until one succeeds and returns
// the name of the entry that did. See [ExecuteWithResult].
func (fg *FallbackGroup[T]) Execute(ctx context.Context, fn func(T) error) (string, error) {
	_, name, err := ExecuteWithResult(ctx, fg, func(v T) (struct{}, error) {
		return struct{}{}, fn(v)
	})
	return name, err
}

// ExecuteWithResult tries fn against each entry in the group until one
// succeeds, returning the result and the name of the entry that produced it.
// Circuit-open entries are skipped. Once ctx is done no further entries are
// tried and the context error is returned. If every entry fails the error
// wraps [ErrAllFailed] and the last failure.
//
// This is a package-level function because Go does not support method-level
// type parameters.
func ExecuteWithResult[T any, R any](ctx context.Context, fg *FallbackGroup[T], fn func(T) (R, error)) (R, string, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range fg.entries {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}
		entry := &fg.entries[i]
		var result R
		err := entry.breaker.Execute(func() error {
			var innerErr error
			result, innerErr = fn(entry.value)
			return innerErr
		})
		if err == nil {
			return result, entry.name, nil
		}
		lastErr = err
		switch {
		case errors.Is(err, ErrCircuitOpen):
			slog.Debug("skipping provider (circuit open)", "provider", entry.name)
		case ctx.Err() != nil:
			return zero, entry.name, err
		default:
			slog.Warn("provider failed, trying next",
				"provider", entry.name, "error", err)
		}
	}
	return zero, "", fmt.Errorf("%w: %w", ErrAllFailed, lastErr)
}
