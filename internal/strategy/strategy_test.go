package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBusy = errors.New("database is locked")

func isBusy(err error) bool { return errors.Is(err, errBusy) }

func noSleep(recorded *[]time.Duration) RetryOption {
	return WithSleep(func(_ context.Context, d time.Duration) error {
		*recorded = append(*recorded, d)
		return nil
	})
}

func TestNoRetry(t *testing.T) {
	calls := 0
	err := NoRetry{}.Execute(context.Background(), func(context.Context) error {
		calls++
		return errBusy
	})
	assert.ErrorIs(t, err, errBusy)
	assert.Equal(t, 1, calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = NoRetry{}.Execute(ctx, func(context.Context) error {
		t.Fatal("op must not run on a canceled context")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetrying_SucceedsAfterTransientFailures(t *testing.T) {
	var delays []time.Duration
	r := NewRetrying(Config{MaxAttempts: 4, BaseDelay: 10 * time.Millisecond, MaxDelay: time.Second}, isBusy, noSleep(&delays))

	calls := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errBusy
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, delays)
}

func TestRetrying_PermanentErrorStopsImmediately(t *testing.T) {
	var delays []time.Duration
	r := NewRetrying(DefaultConfig(), isBusy, noSleep(&delays))

	permanent := errors.New("constraint failed")
	calls := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		calls++
		return permanent
	})
	assert.Same(t, permanent, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, delays)
}

func TestRetrying_Exhausted(t *testing.T) {
	var delays []time.Duration
	r := NewRetrying(DefaultConfig(), isBusy, noSleep(&delays))

	calls := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		calls++
		return errBusy
	})
	require.Error(t, err)
	assert.True(t, IsExhaustedError(err))
	assert.ErrorIs(t, err, errBusy)
	assert.Equal(t, 3, calls)
	assert.Len(t, delays, 2)
}

func TestRetrying_CanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRetrying(DefaultConfig(), isBusy, WithSleep(func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	calls := 0
	err := r.Execute(ctx, func(context.Context) error {
		calls++
		return errBusy
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetrying_Delay(t *testing.T) {
	r := NewRetrying(Config{MaxAttempts: 10, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}, nil)

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, time.Second},
		{30, time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, r.Delay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{MaxAttempts: 0}.Validate())
	assert.Error(t, Config{MaxAttempts: 1, BaseDelay: -1}.Validate())
	assert.Error(t, Config{MaxAttempts: 1, BaseDelay: time.Second, MaxDelay: time.Millisecond}.Validate())
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), 0))
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
