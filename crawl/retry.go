package crawl

import (
	"context"
	"math/rand/v2"
	"time"
)

// LogFunc is the signature for a logging function.
type LogFunc func(format string, args ...any)

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep waits for d, returning early with ctx.Err() if ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Uniform returns a duration drawn uniformly from [lo, hi].
func Uniform(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int64N(int64(hi-lo)+1))
}

// Retry calls fn up to attempts times with a fixed delay between failures.
// fn receives the 1-based attempt number. onRetry, if provided, is called
// after every failed attempt that will be retried. The last error is
// returned when all attempts fail.
func Retry(ctx context.Context, attempts int, delay time.Duration, sleep SleepFunc, fn func(ctx context.Context, attempt int) error, onRetry func(attempt int, err error)) error {
	if sleep == nil {
		sleep = Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		// Don't retry after the last attempt
		if attempt == attempts {
			break
		}

		// Check context before sleeping
		if err := ctx.Err(); err != nil {
			return err
		}

		if onRetry != nil {
			onRetry(attempt, err)
		}

		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}

	return lastErr
}

func (f LogFunc) printf(format string, args ...any) {
	if f != nil {
		f(format, args...)
	}
}

func (f SleepFunc) orDefault() SleepFunc {
	if f == nil {
		return Sleep
	}
	return f
}
