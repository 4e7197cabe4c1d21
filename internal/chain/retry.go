package chain

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	remiterr "github.com/mrz1836/remit/pkg/errors"
)

// Sentinel errors for retry logic.
var (
	ErrRetryable = &remiterr.RemitError{
		Code:     "RETRYABLE_ERROR",
		Message:  "retryable error",
		ExitCode: remiterr.ExitGeneral,
	}

	ErrTimeout = &remiterr.RemitError{
		Code:     "TIMEOUT",
		Message:  "operation timed out",
		ExitCode: remiterr.ExitGeneral,
	}

	ErrRateLimited = &remiterr.RemitError{
		Code:     "RATE_LIMITED",
		Message:  "rate limited",
		ExitCode: remiterr.ExitGeneral,
	}
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	MaxAttempts int           // Maximum number of attempts (including initial)
	BaseDelay   time.Duration // Initial delay between retries
	MaxDelay    time.Duration // Maximum delay between retries
}

// DefaultRetryConfig returns the retry configuration for interactive calls.
// A user is waiting on the wizard, so the budget is short: 3 attempts with
// delays of roughly 200ms and 400ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    time.Second,
	}
}

// RetryWithConfig executes the operation with the specified retry configuration.
// Only errors accepted by IsRetryable are retried.
func RetryWithConfig[T any](ctx context.Context, cfg RetryConfig, operation func() (T, error)) (T, error) {
	var result T
	var err error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err = operation()
		if err == nil {
			return result, nil
		}

		if !IsRetryable(err) {
			return result, err
		}

		if attempt < cfg.MaxAttempts-1 {
			timer := time.NewTimer(calculateDelay(attempt, cfg.BaseDelay, cfg.MaxDelay))
			select {
			case <-ctx.Done():
				timer.Stop()
				return result, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return result, fmt.Errorf("operation failed after %d attempts: %w", cfg.MaxAttempts, err)
}

// calculateDelay returns an exponential backoff delay with jitter in [delay/2, delay).
func calculateDelay(attempt int, baseDelay, maxDelay time.Duration) time.Duration {
	delay := baseDelay * (1 << attempt)
	if delay > maxDelay {
		delay = maxDelay
	}
	half := delay / 2
	if half <= 0 {
		return delay
	}
	return half + rand.N(half) //nolint:gosec // G404: Jitter does not require cryptographic randomness
}

// IsRetryable returns true if the error should trigger a retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, ErrRetryable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, context.DeadlineExceeded)
}

// StatusError maps a non-2xx HTTP status to an error, marking throttling and
// server-side failures as retryable. It returns nil for 2xx statuses.
func StatusError(status int, body string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests:
		return remiterr.WithDetails(ErrRateLimited, map[string]string{"status": strconv.Itoa(status)})
	case status >= 500:
		return WrapRetryable(fmt.Errorf("%w: status %d: %s", remiterr.ErrNetworkError, status, body))
	default:
		return fmt.Errorf("%w: status %d: %s", remiterr.ErrNetworkError, status, body)
	}
}

// WrapRetryable wraps an error to mark it as retryable.
func WrapRetryable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrRetryable, err)
}
