package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"newsletter_ingest/internal/config"
	"newsletter_ingest/internal/domain"
)

// RetryPolicy bounds every store call: each attempt gets Timeout, and
// transient failures are retried Retries times.
type RetryPolicy struct {
	Timeout time.Duration
	Retries int
	Backoff time.Duration
}

func retryPolicyFrom(cfg config.SyncConfig) RetryPolicy {
	return RetryPolicy{
		Timeout: cfg.StoreTimeout,
		Retries: cfg.StoreRetries,
		Backoff: cfg.StoreBackoff,
	}
}

func withRetry(ctx context.Context, policy RetryPolicy, logger *slog.Logger, op string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt <= policy.Retries; attempt++ {
		err = attemptWithTimeout(ctx, policy.Timeout, fn)
		if err == nil || !isTransient(err) || ctx.Err() != nil || attempt == policy.Retries {
			return err
		}

		logger.Warn("store call failed, retrying",
			"op", op,
			"attempt", attempt+1,
			"backoff", policy.Backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(policy.Backoff):
		}
	}
	return err
}

func attemptWithTimeout(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(attemptCtx)
}

// isTransient reports whether repeating the call could succeed.
func isTransient(err error) bool {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrSyncLogClosed),
		errors.Is(err, context.Canceled),
		domain.IsConstraint(err):
		return false
	}
	return true
}
