// Package resilience wraps calls to upstream weather providers with a
// per-provider circuit breaker, optional retries and health tracking.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerConfig decides when a provider's circuit opens and how it recovers.
type BreakerConfig struct {
	// ConsecutiveFailures opens the circuit after this many failed calls in
	// a row. Zero disables the rule.
	ConsecutiveFailures uint32

	// MinRequests and FailureRatio open the circuit once at least
	// MinRequests calls were made in the current window and the share of
	// failures reached FailureRatio. MinRequests zero disables the rule.
	MinRequests  uint32
	FailureRatio float64

	// Window clears the closed-state counts periodically. Zero keeps them
	// until the state changes.
	Window time.Duration

	// Cooldown is how long the circuit stays open before probing again.
	Cooldown time.Duration

	// Probes is the number of calls let through while half-open.
	Probes uint32
}

// DefaultBreakerConfig opens a provider after three straight failures, or
// when half of at least five calls in a five minute window failed, and
// probes it again after thirty seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		ConsecutiveFailures: 3,
		MinRequests:         5,
		FailureRatio:        0.5,
		Window:              5 * time.Minute,
		Cooldown:            30 * time.Second,
		Probes:              1,
	}
}

// ShouldTrip reports whether counts open the circuit under this config.
func (c BreakerConfig) ShouldTrip(counts gobreaker.Counts) bool {
	if c.ConsecutiveFailures > 0 && counts.ConsecutiveFailures >= c.ConsecutiveFailures {
		return true
	}
	if c.MinRequests == 0 || counts.Requests < c.MinRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= c.FailureRatio
}

func newBreaker[T any](name string, cfg BreakerConfig, onChange func(from, to gobreaker.State)) *gobreaker.CircuitBreaker[T] {
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.Probes,
		Interval:    cfg.Window,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: cfg.ShouldTrip,
		// A caller that gave up says nothing about the provider.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			if onChange != nil {
				onChange(from, to)
			}
		},
	})
}
