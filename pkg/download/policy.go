package download

import (
	"context"
	"time"
)

// Default retry settings.
const (
	DefaultMaxRetries = 3
	DefaultBackoff    = 5 * time.Second
)

// RetryPolicy controls how a single file download reacts to failures.
//
// Failures to establish a request consume MaxRetries and are followed by a
// fixed Backoff wait. Read errors after the response has started only trigger
// a new ranged request from the current offset; they are limited by
// MaxStreamRestarts, where zero means no limit.
type RetryPolicy struct {
	MaxRetries        int
	Backoff           time.Duration
	MaxStreamRestarts int

	// Sleep waits between connection attempts. Nil means a real, context
	// aware sleep; tests replace it to avoid delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy returns 3 retries with a fixed 5 second backoff and
// unbounded stream restarts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: DefaultMaxRetries,
		Backoff:    DefaultBackoff,
	}
}

func (p RetryPolicy) wait(ctx context.Context) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, p.Backoff)
	}
	return sleepContext(ctx, p.Backoff)
}

func (p RetryPolicy) streamRestartsExhausted(restarts int) bool {
	return p.MaxStreamRestarts > 0 && restarts > p.MaxStreamRestarts
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
