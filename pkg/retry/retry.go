package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	maxAttempts    = 3
	maxElapsedTime = 30 * time.Second
)

// Do runs fn with exponential backoff: up to 3 attempts within a 30 second
// budget. The retries are invisible to the caller; the result of the last
// attempt is what comes back.
func Do(ctx context.Context, fn func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = maxElapsedTime

	return backoff.Retry(fn, backoff.WithContext(backoff.WithMaxRetries(policy, maxAttempts-1), ctx))
}

// DoValue is Do for calls that return a value alongside the error.
func DoValue[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var out T
	err := Do(ctx, func() error {
		v, err := fn()
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
