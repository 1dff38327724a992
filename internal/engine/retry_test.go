package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetry_SucceedsAfterTransientFailure(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), "flaky op", 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("unavailable")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	wantErr := errors.New("still broken")
	calls := 0
	err := withRetry(context.Background(), "broken op", 3, time.Millisecond, func() error {
		calls++
		return wantErr
	})

	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_FirstTrySkipsBackoff(t *testing.T) {
	start := time.Now()
	err := withRetry(context.Background(), "instant op", 3, time.Second, func() error {
		return nil
	})

	require.NoError(t, err)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := withRetry(ctx, "cancelled op", 3, 10*time.Millisecond, func() error {
		calls++
		return errors.New("fail")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
