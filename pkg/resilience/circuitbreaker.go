// Package resilience holds the fault-tolerance wrappers applied at service
// boundaries: retry with backoff, a circuit breaker, and a call timeout.
// The core pipeline never retries on its own; callers wrap the boundary
// explicitly.
package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without invoking the call while the breaker is
// rejecting traffic.
var ErrCircuitOpen = errors.New("circuit open")

// CircuitBreakerConfig tunes when the breaker trips and when it probes for
// recovery. Zero values take the defaults: trip after 5 consecutive
// failures, probe again after 30s.
type CircuitBreakerConfig struct {
	FailureThreshold int
	Cooldown         time.Duration
}

func (c CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 30 * time.Second
	}
	return c
}

// CircuitBreaker fails fast once a dependency keeps failing. While tripped,
// calls are rejected until the cooldown passes; the first call after the
// cooldown probes the dependency, and its outcome decides whether the
// breaker closes again or trips for another cooldown.
type CircuitBreaker struct {
	name string
	cfg  CircuitBreakerConfig

	mu       sync.Mutex
	failures int
	openedAt time.Time
	probing  bool
	logger   *slog.Logger
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg.withDefaults(),
		logger: slog.Default().With("component", "circuit-breaker", "breaker", name),
	}
}

// Execute runs fn unless the breaker is rejecting traffic, and records the
// outcome.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

// tripped reports whether the failure count has reached the threshold.
// Callers hold cb.mu.
func (cb *CircuitBreaker) tripped() bool {
	return cb.failures >= cb.cfg.FailureThreshold
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if !cb.tripped() {
		return nil
	}
	remaining := cb.cfg.Cooldown - time.Since(cb.openedAt)
	if remaining > 0 {
		return fmt.Errorf("%s: %w, next probe in %v", cb.name, ErrCircuitOpen, remaining.Round(time.Millisecond))
	}
	if cb.probing {
		return fmt.Errorf("%s: %w, probe in flight", cb.name, ErrCircuitOpen)
	}
	cb.probing = true
	cb.logger.Info("cooldown elapsed, probing dependency")
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	wasTripped := cb.tripped()
	cb.probing = false
	if err == nil {
		cb.failures = 0
		if wasTripped {
			cb.logger.Info("dependency recovered, circuit closed")
		}
		return
	}

	cb.failures++
	if cb.tripped() {
		cb.openedAt = time.Now()
		if !wasTripped {
			cb.logger.Warn("failure threshold reached, circuit opened",
				"failures", cb.failures,
				"cooldown", cb.cfg.Cooldown,
			)
		}
	}
}
