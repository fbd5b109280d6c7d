package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func TestWithRetry(t *testing.T) {
	fast := RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			if calls < 3 {
				return errTransient
			}
			return nil
		}, fast)
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			return errTransient
		}, fast)
		assert.ErrorIs(t, err, ErrMaxRetries)
		assert.ErrorIs(t, err, errTransient)
		assert.Equal(t, 3, calls)
	})

	t.Run("permanent errors are returned immediately", func(t *testing.T) {
		opts := fast
		opts.Retryable = func(err error) bool { return errors.Is(err, errTransient) }
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			return ErrNotFound
		}, opts)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NotErrorIs(t, err, ErrMaxRetries)
		assert.Equal(t, 1, calls)
	})

	t.Run("canceled context stops waiting", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		opts := fast
		opts.InitialDelay = time.Hour
		err := WithRetry(ctx, func() error { return errTransient }, opts)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
