package queue

import (
	"context"
	"errors"
	"time"

	"github.com/gh1989/nethub/internal/backoff"
	"github.com/gh1989/nethub/internal/config"
	"github.com/gh1989/nethub/internal/metrics"
	"github.com/gh1989/nethub/internal/store"
)

// RetryPolicy controls how transient store errors are retried.
// MaxRetries counts retries after the first attempt.
type RetryPolicy struct {
	MaxRetries int
	Backoff    backoff.Strategy
}

// DefaultRetryPolicy retries 3 times after 200ms, 400ms and 800ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, Backoff: backoff.Default()}
}

// maxRetryDelay caps a single wait between retries.
const maxRetryDelay = 30 * time.Second

// RetryPolicyFromConfig builds an exponential policy starting at
// cfg.RetryBackoff and capped at maxRetryDelay.
func RetryPolicyFromConfig(cfg config.QueueConfig) RetryPolicy {
	return RetryPolicy{
		MaxRetries: cfg.MaxRetries,
		Backoff:    backoff.NewExponential(cfg.RetryBackoff, maxRetryDelay),
	}
}

// do runs fn under the retry policy and classifies its result. ErrNotFound,
// ErrInvalidTransition and ErrInvalidJob pass through untouched; transient
// store errors are retried; everything else becomes an *OpError.
func (c *Client) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempt := 0
	for {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if isCallerError(err) {
			return err
		}
		if !store.IsUnavailable(err) || attempt > c.retry.MaxRetries || ctx.Err() != nil {
			return c.fail(op, attempt, err)
		}

		delay := c.retry.Backoff.Delay(attempt)
		c.logger.Warn("transient store error, retrying",
			"op", op,
			"attempt", attempt,
			"delay_ms", delay.Milliseconds(),
			"error", err,
		)
		metrics.IncQueueRetry(op)

		if sErr := sleep(ctx, delay); sErr != nil {
			return c.fail(op, attempt, errors.Join(err, sErr))
		}
	}
}

func (c *Client) fail(op string, attempts int, err error) error {
	metrics.IncQueueFailure(op)
	return &OpError{Op: op, Attempts: attempts, Err: err}
}

func isCallerError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrInvalidJob)
}

func sleep(ctx context.Context, d time.Duration) error {
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
