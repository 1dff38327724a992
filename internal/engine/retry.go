package engine

import (
	"context"
	"log"
	"time"
)

const (
	defaultRetryAttempts = 3
	defaultRetryDelay    = 200 * time.Millisecond
)

// withRetry runs a one-shot operation with exponential backoff. It is meant
// for writes whose failure is expected to be transient, such as dependent
// updates racing the store's permission propagation. Subscriptions do not
// use it: their transport retries on its own.
func withRetry(ctx context.Context, op string, attempts int, delay time.Duration, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		log.Printf("%s failed (attempt %d/%d): %v", op, attempt, attempts, lastErr)
		if attempt == attempts {
			break
		}

		wait := delay * (1 << (attempt - 1))
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return lastErr
}
