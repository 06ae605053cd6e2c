package retry_test

import (
	"context"
	"errors"
	"math"
	"os"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/gmx-exporter/internal/logger"
	"github.com/feral-file/gmx-exporter/internal/mocks"
	"github.com/feral-file/gmx-exporter/internal/retry"
)

func TestMain(m *testing.M) {
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

func fired() <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

func TestPolicy_Wait(t *testing.T) {
	p := retry.Policy{MaxAttempts: 5, InitialWait: time.Second, MaxWait: 5 * time.Second}

	assert.Equal(t, time.Second, p.Wait(0))
	assert.Equal(t, 2*time.Second, p.Wait(1))
	assert.Equal(t, 4*time.Second, p.Wait(2))
	assert.Equal(t, 5*time.Second, p.Wait(3))
	assert.Equal(t, 5*time.Second, p.Wait(10))

	unbounded := retry.Policy{InitialWait: time.Second}
	assert.Equal(t, 8*time.Second, unbounded.Wait(3))
	assert.Equal(t, time.Duration(math.MaxInt64), unbounded.Wait(100))
}

func TestDo_WaitsFollowPolicyCap(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	policy := retry.Policy{MaxAttempts: 5, InitialWait: time.Second, MaxWait: 3 * time.Second}

	var waits []time.Duration
	clock := mocks.NewMockClock(ctrl)
	clock.EXPECT().After(gomock.Any()).DoAndReturn(func(d time.Duration) <-chan time.Time {
		waits = append(waits, d)
		return fired()
	}).Times(4)

	_, err := retry.Do(context.Background(), retry.New(policy, clock), "capped", func(ctx context.Context) (int, error) {
		return 0, errors.New("timeout")
	})

	require.Error(t, err)
	require.Len(t, waits, 4)
	for i, w := range waits {
		assert.Equal(t, policy.Wait(i), w)
	}
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second}, waits)
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	clock := mocks.NewMockClock(ctrl)
	r := retry.New(retry.Policy{MaxAttempts: 3, InitialWait: time.Second}, clock)

	calls := 0
	res, err := retry.Do(context.Background(), r, "test", func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, res)
	assert.Equal(t, 1, calls)
}

func TestDo_RecoversAfterTransientFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	clock := mocks.NewMockClock(ctrl)
	gomock.InOrder(
		clock.EXPECT().After(100*time.Millisecond).Return(fired()),
		clock.EXPECT().After(200*time.Millisecond).Return(fired()),
	)
	r := retry.New(retry.Policy{MaxAttempts: 5, InitialWait: 100 * time.Millisecond, MaxWait: time.Minute}, clock)

	calls := 0
	res, err := retry.Do(context.Background(), r, "test", func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("503 service unavailable")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttemptsWithIncreasingWaits(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	var waits []time.Duration
	clock := mocks.NewMockClock(ctrl)
	clock.EXPECT().After(gomock.Any()).DoAndReturn(func(d time.Duration) <-chan time.Time {
		waits = append(waits, d)
		return fired()
	}).Times(3)

	r := retry.New(retry.Policy{MaxAttempts: 4, InitialWait: time.Second, MaxWait: time.Minute}, clock)

	boom := errors.New("connection reset by peer")
	calls := 0
	_, err := retry.Do(context.Background(), r, "batch", func(ctx context.Context) (int, error) {
		calls++
		return 0, boom
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "batch failed after 4 attempts")
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, waits)
	for i := 1; i < len(waits); i++ {
		assert.Greater(t, waits[i], waits[i-1])
	}
}

func TestDo_PermanentErrorStopsImmediately(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	clock := mocks.NewMockClock(ctrl)
	r := retry.New(retry.Policy{MaxAttempts: 5, InitialWait: time.Second}, clock)

	invalid := errors.New("invalid argument")
	calls := 0
	_, err := retry.Do(context.Background(), r, "test", func(ctx context.Context) (int, error) {
		calls++
		return 0, retry.Permanent(invalid)
	})

	assert.ErrorIs(t, err, invalid)
	assert.Equal(t, 1, calls)
}

func TestDo_SingleAttemptPolicy(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	clock := mocks.NewMockClock(ctrl)
	r := retry.New(retry.Policy{MaxAttempts: 0, InitialWait: time.Second}, clock)

	calls := 0
	_, err := retry.Do(context.Background(), r, "test", func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("timeout")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_StopsOnContextCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())

	clock := mocks.NewMockClock(ctrl)
	clock.EXPECT().After(gomock.Any()).DoAndReturn(func(d time.Duration) <-chan time.Time {
		cancel()
		return make(chan time.Time)
	})
	r := retry.New(retry.Policy{MaxAttempts: 5, InitialWait: time.Second}, clock)

	calls := 0
	_, err := retry.Do(ctx, r, "test", func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("timeout")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
