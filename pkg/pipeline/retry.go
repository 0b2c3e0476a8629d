package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrPollExhausted is returned when a poll runs out of attempts before the
// probe succeeds.
var ErrPollExhausted = errors.New("poll attempts exhausted")

// Poll invokes probe on a fixed interval until it returns nil, the context
// is cancelled, or maxAttempts probes have failed. A wedged backing service
// surfaces as a timeout error rather than a hang. Returns the number of
// attempts used.
func Poll(ctx context.Context, interval time.Duration, maxAttempts int, probe func(ctx context.Context) error) (int, error) {
	if maxAttempts <= 0 {
		return 0, fmt.Errorf("maxAttempts must be positive, got %d", maxAttempts)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := probe(ctx); err == nil {
			return attempt, nil
		} else {
			lastErr = err
		}

		if attempt == maxAttempts {
			break
		}

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return attempt, ctx.Err()
		}
	}

	return maxAttempts, fmt.Errorf("%w after %d attempts: %v", ErrPollExhausted, maxAttempts, lastErr)
}

// Sleep waits for d or until the context is cancelled.
func Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
