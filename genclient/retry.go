package genclient

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy shapes the exponential backoff between generation attempts.
type RetryPolicy struct {
	// MaxRetries is the number of attempts after the first.
	MaxRetries int
	// BaseDelay seeds the backoff; attempt n waits BaseDelay * Multiplier^n.
	BaseDelay time.Duration
	// MaxDelay caps the computed backoff.
	MaxDelay time.Duration
	// Multiplier is the exponential growth factor.
	Multiplier float64
	// Jitter spreads the delay over [0.5, 1.5) of its computed value.
	Jitter bool
	// OnRetry, when set, observes each retry before its delay.
	OnRetry func(err error, attempt int, delay time.Duration)
}

// DefaultRetryPolicy returns the backoff used when a generator's config
// leaves retries unset.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		BaseDelay:  time.Second,
		MaxDelay:   60 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// Delay computes the backoff before retry n (0-indexed).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt))
	if ceil := float64(p.MaxDelay); d > ceil {
		d = ceil
	}
	if p.Jitter {
		d *= 0.5 + rand.Float64()
	}
	return time.Duration(d)
}

// Retry runs fn until it succeeds, fails with a non-retryable error, or the
// policy is exhausted. A rate-limit error carrying a Retry-After hint waits
// that long instead of the computed backoff; a hint beyond MaxDelay aborts
// immediately rather than stalling the session.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if attempt >= policy.MaxRetries || !IsRetryable(err) {
			return zero, err
		}

		delay := policy.Delay(attempt)
		if rl, ok := err.(*RateLimitError); ok && rl.RetryAfter != nil {
			hinted := time.Duration(*rl.RetryAfter * float64(time.Second))
			if hinted > policy.MaxDelay {
				return zero, err
			}
			delay = hinted
		}

		if policy.OnRetry != nil {
			policy.OnRetry(err, attempt+1, delay)
		}

		select {
		case <-ctx.Done():
			return zero, &AbortError{ClientError: ClientError{Message: "generation cancelled during retry", Cause: ctx.Err()}}
		case <-time.After(delay):
		}
	}
}
