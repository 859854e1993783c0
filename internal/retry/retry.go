// Package retry runs a single operation under a bounded retry policy.
package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/devlopersumit/issuehub/internal/errors"
	"github.com/devlopersumit/issuehub/internal/observability"
)

// BackoffFunc returns the wait before the given retry (1 for the first retry)
type BackoffFunc func(retry int) time.Duration

// Exponential returns a backoff of base, 2*base, 4*base, ...
func Exponential(base time.Duration) BackoffFunc {
	return func(retry int) time.Duration {
		if retry < 1 {
			retry = 1
		}
		return base << (retry - 1)
	}
}

// Policy decides how often and how patiently an operation is retried.
// The operation itself knows nothing about retries.
type Policy struct {
	// MaxAttempts counts the first call, so 3 means up to 2 retries
	MaxAttempts int

	// Backoff computes the wait before each retry
	Backoff BackoffFunc

	// Retryable reports whether err may succeed on another attempt.
	// Defaults to errors.IsTransient.
	Retryable func(err error) bool

	Logger *slog.Logger
}

// DefaultPolicy returns the upstream policy: 3 attempts, 1s doubling backoff,
// retrying only server-side failures
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Backoff:     Exponential(time.Second),
		Retryable:   ServerErrorsOnly,
	}
}

// ServerErrorsOnly retries 5xx responses and nothing else
func ServerErrorsOnly(err error) bool {
	return errors.IsServiceUnavailable(err)
}

// Do runs op until it succeeds, fails with a non-retryable error, ctx is
// cancelled, or attempts run out. The last error is returned unchanged so
// callers can classify it.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = errors.IsTransient
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(0)
			if p.Backoff != nil {
				backoff = p.Backoff(attempt - 1)
			}

			logger.Debug("retrying after backoff",
				"attempt", attempt,
				"backoff", backoff.String(),
				"error", lastErr)
			observability.GetMetrics().RetryAttempts.Inc()

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !retryable(err) {
			return err
		}
	}

	logger.Debug("retries exhausted",
		"attempts", attempts,
		"error", lastErr)
	return lastErr
}
