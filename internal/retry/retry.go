// Package retry wraps a single external call with bounded
// exponential-backoff retry. Only provider backpressure
// ([fault.RateLimited]) is treated as transient; every other failure is
// propagated to the caller after the first attempt.
package retry

import (
	"context"
	"time"

	"voiceagent/internal/fault"
)

// Policy holds the tuning knobs for one retried call. The zero value is
// usable: fields are replaced with defaults by [Do].
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Default: 3.
	MaxAttempts int

	// BaseDelay is the unit of backoff: attempt n (0-indexed) waits
	// BaseDelay << n before the next attempt. Default: 1s.
	BaseDelay time.Duration

	// OnRetry, if set, is invoked before each backoff wait with the
	// 1-indexed attempt number, the computed delay, and the error that
	// triggered the retry.
	OnRetry func(attempt int, delay time.Duration, err error)

	// Sleep replaces the backoff wait. Tests inject a recorder here; the
	// default waits on a timer or the context, whichever fires first.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Delay returns the backoff before attempt+1 (attempt is 0-indexed).
func (p Policy) Delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	return base << attempt
}

// Do invokes op until it succeeds, fails with a non-rate-limited error, or
// the attempt budget is exhausted. The retrier holds no state across calls
// and is safe to use from concurrent call sites.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var (
		zero    T
		lastErr error
	)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if !fault.Is(err, fault.RateLimited) {
			return zero, err
		}
		lastErr = err

		if attempt == maxAttempts-1 {
			break
		}
		delay := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, delay, err)
		}
		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
