package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// RetryPolicy bounds how a failing provider call is repeated.
type RetryPolicy struct {
	Initial        time.Duration
	Max            time.Duration
	Attempts       uint
	AttemptTimeout time.Duration
}

// DefaultRetry is randomised exponential backoff starting at one second,
// capped at forty, three attempts in total.
var DefaultRetry = RetryPolicy{
	Initial:        time.Second,
	Max:            40 * time.Second,
	Attempts:       3,
	AttemptTimeout: 40 * time.Second,
}

// APIError is a provider error carrying the HTTP status it was answered with.
type APIError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %v", e.Provider, e.StatusCode, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// IsTransient reports whether err is worth retrying: rate limits, server
// errors, timeouts and connection failures. Cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests,
			apiErr.StatusCode == http.StatusRequestTimeout,
			apiErr.StatusCode == http.StatusConflict,
			apiErr.StatusCode >= 500:
			return true
		case apiErr.StatusCode >= 400:
			return false
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "connection reset", "overloaded", "eof", "timeout"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// retry runs call under policy. Each attempt gets its own timeout; errors
// that are not transient stop the loop immediately.
func retry[T any](ctx context.Context, policy RetryPolicy, logger *zap.Logger, call func(context.Context) (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.Initial
	b.MaxInterval = policy.Max

	attempt := 0
	op := func() (T, error) {
		attempt++
		actx := ctx
		if policy.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			actx, cancel = context.WithTimeout(ctx, policy.AttemptTimeout)
			defer cancel()
		}
		out, err := call(actx)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return out, backoff.Permanent(ctx.Err())
		}
		if !IsTransient(err) {
			return out, backoff.Permanent(fmt.Errorf("%w: %w", ErrProviderRejected, err))
		}
		return out, err
	}

	attempts := policy.Attempts
	if attempts == 0 {
		attempts = 1
	}
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(attempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			logger.Warn("provider call failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err))
		}),
	)
}
