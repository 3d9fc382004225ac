// Package retry runs remote calls with bounded exponential backoff.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 3
	// DefaultBaseDelay doubles on every retry.
	DefaultBaseDelay = 1 * time.Second
)

// Policy bounds the retries of one operation.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	// Retryable decides which errors are worth another attempt.
	Retryable func(error) bool
}

// DefaultPolicy returns the default policy with the given retryable check.
func DefaultPolicy(retryable func(error) bool) Policy {
	return Policy{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		Retryable:  retryable,
	}
}

// Do executes fn with exponential backoff on retryable errors.
// Non-retryable errors are returned unchanged; exhausted retries wrap the last error.
func Do[T any](ctx context.Context, logger zerolog.Logger, p Policy, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	var lastErr error

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		result, lastErr = fn(ctx)
		if lastErr == nil {
			return result, nil
		}

		if p.Retryable == nil || !p.Retryable(lastErr) {
			return result, lastErr
		}

		if attempt < p.MaxRetries {
			delay := p.BaseDelay * time.Duration(1<<attempt)
			logger.Warn().
				Str("operation", operation).
				Int("attempt", attempt+1).
				Int("max_attempts", p.MaxRetries+1).
				Dur("delay", delay).
				Err(lastErr).
				Msg("retrying after transient error")

			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	if p.MaxRetries == 0 {
		return result, lastErr
	}
	return result, fmt.Errorf("max retries exceeded for %s: %w", operation, lastErr)
}
