package resilience

import (
	"context"

	"github.com/cenkalti/backoff/v5"
)

// Retry runs op until it succeeds, returns an error retryable rejects, or
// the attempt budget is spent. The last error is returned unwrapped.
func Retry(ctx context.Context, cfg RetryConfig, retryable func(error) bool, op func(ctx context.Context) error) error {
	cfg = cfg.withDefaults()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialInterval
	b.MaxInterval = cfg.MaxInterval

	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(cfg.MaxAttempts),
	}
	if cfg.OnRetry != nil {
		opts = append(opts, backoff.WithNotify(cfg.OnRetry))
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if err := op(ctx); err != nil {
			if retryable != nil && retryable(err) {
				return struct{}{}, err
			}
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, nil
	}, opts...)
	return err
}
