package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUntil_ImmediateSuccess(t *testing.T) {
	calls := 0
	err := Until(context.Background(), time.Millisecond, time.Second, func(ctx context.Context) (bool, error) {
		calls++
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestUntil_SettlesAfterRetries(t *testing.T) {
	calls := 0
	err := Until(context.Background(), time.Millisecond, time.Second, func(ctx context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestUntil_TimedOut(t *testing.T) {
	err := Until(context.Background(), 5*time.Millisecond, 30*time.Millisecond, func(ctx context.Context) (bool, error) {
		return false, nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimedOut)
}

func TestUntil_ConditionErrorStops(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Until(context.Background(), time.Millisecond, time.Second, func(ctx context.Context) (bool, error) {
		calls++
		return false, boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrTimedOut)
	assert.Equal(t, 1, calls)
}

func TestUntil_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Until(ctx, 10*time.Millisecond, time.Minute, func(ctx context.Context) (bool, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return false, nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
