package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("server down")

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func fail(context.Context) error { return errDown }
func ok(context.Context) error   { return nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var transitions []State
	cb := IngestBreaker(func(_ string, _, to State) { transitions = append(transitions, to) }, WithClock(clock.now))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	}
	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, ok), ErrCircuitOpen)
	assert.Equal(t, []State{StateOpen}, transitions)
}

func TestBreaker_HalfOpenRecovers(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	cb := New("t", WithFailureThreshold(1), WithSuccessThreshold(1), WithTimeout(time.Minute), WithClock(clock.now))
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, fail))
	clock.advance(59 * time.Second)
	assert.ErrorIs(t, cb.Execute(ctx, ok), ErrCircuitOpen)

	clock.advance(time.Second)
	require.NoError(t, cb.Execute(ctx, ok))
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	cb := New("t", WithFailureThreshold(1), WithTimeout(time.Second), WithClock(clock.now))
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, fail))
	clock.advance(time.Second)
	require.Error(t, cb.Execute(ctx, fail))
	assert.Equal(t, StateOpen, cb.State())

	// the open window restarts from the probe failure
	clock.advance(500 * time.Millisecond)
	assert.ErrorIs(t, cb.Execute(ctx, ok), ErrCircuitOpen)
}

func TestBreaker_IsFailureFilter(t *testing.T) {
	cb := New("t", WithFailureThreshold(1), WithIsFailure(func(err error) bool { return !errors.Is(err, errDown) }))
	require.Error(t, cb.Execute(context.Background(), fail))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 1, cb.Counts().TotalSuccesses)
}

func TestBreaker_FallbackAndReset(t *testing.T) {
	cb := New("t", WithFailureThreshold(1))
	ctx := context.Background()
	require.Error(t, cb.Execute(ctx, fail))

	err := cb.ExecuteWithFallback(ctx, ok, func(err error) error {
		assert.ErrorIs(t, err, ErrCircuitOpen)
		return nil
	})
	require.NoError(t, err)

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, Counts{}, cb.Counts())
	assert.Equal(t, "t", cb.Name())
	assert.Equal(t, "half-open", StateHalfOpen.String())
}
