package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("flaky")

func fast(opts ...Option) []Option {
	return append([]Option{WithInitialDelay(time.Millisecond), WithMaxDelay(time.Millisecond), WithJitter(0)}, opts...)
}

func TestDo_RetriesRetryable(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errFlaky)
		}
		return nil
	}, fast(WithMaxAttempts(3))...)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustedReturnsUnwrapped(t *testing.T) {
	var retries []int
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return Retryable(errFlaky)
	}, fast(WithMaxAttempts(2), WithOnRetry(func(a int, _ error, _ time.Duration) {
		retries = append(retries, a)
	}))...)

	assert.Equal(t, errFlaky, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []int{1}, retries)
}

func TestDo_PlainErrorNotRetried(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return errFlaky
	}, fast()...)

	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 1, calls)
}

func TestDo_PermanentStops(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(errFlaky)
	}, fast(WithRetryIf(func(error) bool { return true }))...)

	assert.Equal(t, errFlaky, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDelay_BackoffAndCap(t *testing.T) {
	r := New(WithInitialDelay(100*time.Millisecond), WithMaxDelay(300*time.Millisecond), WithJitter(0))

	assert.Equal(t, 100*time.Millisecond, r.Delay(1))
	assert.Equal(t, 200*time.Millisecond, r.Delay(2))
	assert.Equal(t, 300*time.Millisecond, r.Delay(3))
}

func TestDelay_JitterSource(t *testing.T) {
	r := New(WithInitialDelay(100*time.Millisecond), WithJitter(0.5), WithRand(func() float64 { return 1 }))
	assert.Equal(t, 150*time.Millisecond, r.Delay(1))

	r = New(WithInitialDelay(100*time.Millisecond), WithJitter(0.5), WithRand(func() float64 { return 0 }))
	assert.Equal(t, 50*time.Millisecond, r.Delay(1))
}

func TestDoWithData(t *testing.T) {
	v, err := DoWithData(context.Background(), func(context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestStartupRetrier_RetriesAnyError(t *testing.T) {
	calls := 0
	err := StartupRetrier(fast()...).Do(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return errFlaky
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
