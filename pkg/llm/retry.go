package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryConfig bounds every model call: each attempt gets Timeout, and a
// failed attempt is retried up to MaxRetries times with exponential backoff.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Timeout         time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Timeout:         60 * time.Second,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	d := DefaultRetryConfig()
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = d.InitialInterval
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = d.MaxInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	return c
}

func withRetry[T any](ctx context.Context, cfg RetryConfig, log *slog.Logger, op string, call func(ctx context.Context) (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialInterval
	b.MaxInterval = cfg.MaxInterval

	attempt := 0
	operation := func() (T, error) {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()

		out, err := call(attemptCtx)
		if err != nil && ctx.Err() != nil {
			return out, backoff.Permanent(ctx.Err())
		}
		return out, err
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(cfg.MaxRetries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn("model call failed, retrying", "op", op, "attempt", attempt, "next", next, "error", err)
		}),
	)
}
