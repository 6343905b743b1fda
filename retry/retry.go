/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package retry repeats operations (connecting to Redis or PostgreSQL) with a backoff policy.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/backendkit/go-backendkit/log"
)

// IsRetryable tells whether an error is worth another attempt. Nil means every error is.
type IsRetryable func(error) bool

// RetryableFunc is a single attempt of an operation.
type RetryableFunc func(ctx context.Context) error

// Policy produces a fresh backoff for every DoWithRetry call.
type Policy interface {
	NewBackOff() backoff.BackOff
}

// DoWithRetry runs fn until it succeeds, the error is not retryable, the policy gives up, or ctx is done.
// notify (optional) is called before every delay.
func DoWithRetry(ctx context.Context, p Policy, isRetryable IsRetryable, notify backoff.Notify, fn RetryableFunc) error {
	bctx := backoff.WithContext(p.NewBackOff(), ctx)
	op := func() error {
		err := fn(bctx.Context())
		if err != nil && isRetryable != nil && !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.RetryNotify(op, bctx, notify)
}

// NotifyWithLogger returns a backoff.Notify that reports each failed attempt as a warning.
func NotifyWithLogger(logger log.FieldLogger, operation string) backoff.Notify {
	attempt := 0
	return func(err error, delay time.Duration) {
		attempt++
		logger.Warn(operation+" failed, will retry",
			log.Int("attempt", attempt), log.Duration("delay", delay), log.Error(err))
	}
}

// ExponentialBackoffPolicy retries up to maxAttempts times (0 means until ctx is done) with growing delays.
type ExponentialBackoffPolicy struct {
	initialInterval time.Duration
	maxInterval     time.Duration
	maxAttempts     int
}

// NewExponentialBackoffPolicy creates a new ExponentialBackoffPolicy.
func NewExponentialBackoffPolicy(initialInterval time.Duration, maxRetryAttempts int) ExponentialBackoffPolicy {
	return ExponentialBackoffPolicy{initialInterval: initialInterval, maxAttempts: maxRetryAttempts}
}

// WithMaxInterval caps a single delay.
func (p ExponentialBackoffPolicy) WithMaxInterval(d time.Duration) ExponentialBackoffPolicy {
	p.maxInterval = d
	return p
}

// NewBackOff implements Policy.
func (p ExponentialBackoffPolicy) NewBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.initialInterval
	if p.maxInterval > 0 {
		eb.MaxInterval = p.maxInterval
	}
	// Attempts are bounded by maxAttempts or ctx, not by wall time.
	eb.MaxElapsedTime = 0
	var b backoff.BackOff = eb
	if p.maxAttempts > 0 {
		b = backoff.WithMaxRetries(eb, uint64(p.maxAttempts))
	}
	b.Reset()
	return b
}

// ConstantBackoffPolicy retries up to maxAttempts times with a fixed delay.
type ConstantBackoffPolicy struct {
	interval    time.Duration
	maxAttempts int
}

// NewConstantBackoffPolicy creates a new ConstantBackoffPolicy.
func NewConstantBackoffPolicy(interval time.Duration, maxRetryAttempts int) ConstantBackoffPolicy {
	return ConstantBackoffPolicy{interval: interval, maxAttempts: maxRetryAttempts}
}

// NewBackOff implements Policy.
func (p ConstantBackoffPolicy) NewBackOff() backoff.BackOff {
	var b backoff.BackOff = backoff.NewConstantBackOff(p.interval)
	if p.maxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(p.maxAttempts))
	}
	b.Reset()
	return b
}
