// Package retry runs a call again with exponential backoff. It is only used
// while establishing connections at start-up; user operations are never
// retried.
package retry

import (
	"context"
	"math"
	"time"
)

// Func is the call being retried
type Func func() error

// Classifier reports whether an error is worth another attempt
type Classifier func(error) bool

// Options defines how often and how patiently to retry
type Options struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	Classifier      Classifier
}

// DefaultOptions retries five times starting at half a second
func DefaultOptions() Options {
	return Options{
		MaxAttempts:     5,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Multiplier:      2.0,
	}
}

// Do calls fn until it succeeds, returns a non-retryable error, runs out of
// attempts or ctx is done. The last error is returned.
func Do(ctx context.Context, fn Func, opts Options) error {
	attempts := opts.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if opts.Classifier != nil && !opts.Classifier(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		timer := time.NewTimer(Backoff(attempt, opts))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

// Backoff returns the wait after the given failed attempt, capped at MaxInterval
func Backoff(attempt int, opts Options) time.Duration {
	if attempt <= 1 {
		return capped(float64(opts.InitialInterval), opts.MaxInterval)
	}
	return capped(float64(opts.InitialInterval)*math.Pow(opts.Multiplier, float64(attempt-1)), opts.MaxInterval)
}

func capped(interval float64, max time.Duration) time.Duration {
	if max > 0 && interval > float64(max) {
		return max
	}
	return time.Duration(interval)
}
