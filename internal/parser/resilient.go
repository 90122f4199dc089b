package parser

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/avast/retry-go"
)

const (
	DefaultTimeout = 15 * time.Second
	DefaultRetries = 1
	retryDelay     = 500 * time.Millisecond
)

// Resilient bounds every call to the wrapped parser with a timeout and
// retries failed attempts. Caller cancellation and blank input are never
// retried.
type Resilient struct {
	next    Parser
	timeout time.Duration
	retries int
	delay   time.Duration
	logger  *slog.Logger
}

func NewResilient(next Parser, timeout time.Duration, retries int, logger *slog.Logger) *Resilient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if retries < 0 {
		retries = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resilient{next: next, timeout: timeout, retries: retries, delay: retryDelay, logger: logger}
}

func (r *Resilient) Parse(ctx context.Context, text string) (*Result, error) {
	var result *Result
	err := retry.Do(
		func() error {
			attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()

			res, err := r.next.Parse(attemptCtx, text)
			if err != nil {
				return err
			}
			if res == nil {
				return ErrEmptyResponse
			}
			result = res
			return nil
		},
		retry.Context(ctx),
		retry.RetryIf(func(err error) bool {
			return ctx.Err() == nil && !errors.Is(err, ErrEmptyInput)
		}),
		retry.OnRetry(func(n uint, err error) {
			r.logger.WarnContext(ctx, "Parse attempt failed, retrying", "attempt", n+1, "error", err)
		}),
		retry.Attempts(uint(r.retries+1)),
		retry.Delay(r.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return result, nil
}
