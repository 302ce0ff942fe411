package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// RetryConfig tunes the backoff schedule. Zero values take the defaults:
// 3 attempts starting at 100ms, doubling up to 5s, with 20% jitter.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 5 * time.Second
	}
	return c
}

// Retry runs fn up to MaxAttempts times with exponential backoff between
// attempts. The context cancels waits between attempts but never interrupts
// a running fn; fn must honor its own context if it can block.
func Retry(ctx context.Context, name string, cfg RetryConfig, fn func() error) error {
	cfg = cfg.withDefaults()
	delay := cfg.InitialDelay

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil {
			if attempt > 1 {
				slog.Info("recovered after retry", "operation", name, "attempt", attempt)
			}
			return nil
		}
		if attempt >= cfg.MaxAttempts {
			return fmt.Errorf("%s: %d attempts exhausted: %w", name, cfg.MaxAttempts, err)
		}

		wait := jittered(delay)
		slog.Warn("attempt failed, backing off",
			"operation", name,
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return fmt.Errorf("%s: retry cancelled: %w", name, context.Cause(ctx))
		}
		if delay *= 2; delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
}

// jittered spreads the delay by +/-20% so synchronized callers do not retry
// in lockstep.
func jittered(d time.Duration) time.Duration {
	spread := float64(d) * 0.2
	return d + time.Duration((2*rand.Float64()-1)*spread)
}
