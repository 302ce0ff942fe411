package resilience

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/caselens/caselens/pkg/errors"
)

// WithTimeout runs fn under a deadline. The returned error wraps
// ErrTimeout when the deadline fires first, even if fn ignores its context;
// in that case fn keeps running in the background until it notices the
// cancelled context. A non-positive timeout runs fn unbounded.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	bounded, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := make(chan error, 1)
	go func() { result <- fn(bounded) }()

	select {
	case err := <-result:
		return err
	case <-bounded.Done():
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", name, ctx.Err())
		}
		return fmt.Errorf("%s after %v: %w", name, timeout, apperrors.ErrTimeout)
	}
}
