package ratelimit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/omochice/xapi/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when the limiter sleeps or the test says so.
type fakeClock struct {
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newLimiter(clock *fakeClock) *ratelimit.Limiter {
	return ratelimit.New(ratelimit.DefaultSpacing, ratelimit.DefaultBurst,
		ratelimit.WithClock(clock.Now, clock.Sleep))
}

func write(t *testing.T, l *ratelimit.Limiter, clock *fakeClock) (time.Time, time.Duration) {
	t.Helper()
	var at time.Time
	d, err := l.Do(context.Background(), func() error {
		at = clock.Now()
		return nil
	})
	require.NoError(t, err)
	return at, d
}

func TestLimiter_BurstThenThrottle(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter(clock)
	start := clock.Now()

	var stamps []time.Time
	for i := 0; i < 8; i++ {
		at, _ := write(t, l, clock)
		stamps = append(stamps, at)
	}

	for i := 0; i < 6; i++ {
		assert.Equal(t, start, stamps[i], "write %d should not be delayed", i+1)
	}
	assert.Equal(t, 200*time.Millisecond, stamps[6].Sub(stamps[5]))
	assert.Equal(t, 200*time.Millisecond, stamps[7].Sub(stamps[6]))
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 200 * time.Millisecond}, clock.slept)
}

func TestLimiter_FirstWriteNeverDelayed(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter(clock)

	_, d := write(t, l, clock)
	assert.Zero(t, d)
}

func TestLimiter_PartialElapsedShortensDelay(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter(clock)

	for i := 0; i < 6; i++ {
		write(t, l, clock)
	}
	clock.Advance(150 * time.Millisecond)

	_, d := write(t, l, clock)
	assert.Equal(t, 50*time.Millisecond, d)
}

func TestLimiter_GapResetsBurst(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter(clock)

	for i := 0; i < 8; i++ {
		write(t, l, clock)
	}
	clock.Advance(ratelimit.DefaultSpacing)

	for i := 0; i < 6; i++ {
		_, d := write(t, l, clock)
		assert.Zero(t, d, "write %d after gap", i+1)
	}
	_, d := write(t, l, clock)
	assert.Equal(t, ratelimit.DefaultSpacing, d)
}

func TestLimiter_Skip(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter(clock)

	for i := 0; i < 10; i++ {
		write(t, l, clock)
	}
	l.Skip()

	_, d := write(t, l, clock)
	assert.Zero(t, d)
}

func TestLimiter_SkipBeforeEveryWrite(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter(clock)

	for i := 0; i < 20; i++ {
		l.Skip()
		_, d := write(t, l, clock)
		assert.Zero(t, d)
	}
	assert.Empty(t, clock.slept)
}

func TestLimiter_FailedWriteNotRecorded(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter(clock)
	boom := errors.New("boom")

	_, err := l.Do(context.Background(), func() error { return boom })
	require.ErrorIs(t, err, boom)

	// no write was recorded, so there is nothing to pace against
	for i := 0; i < 6; i++ {
		_, d := write(t, l, clock)
		assert.Zero(t, d)
	}
}

func TestLimiter_DelayDoesNotRecordWrite(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter(clock)

	assert.Zero(t, l.Delay(clock.Now()))
	assert.Zero(t, l.Delay(clock.Now()))
	_, d := write(t, l, clock)
	assert.Zero(t, d)
}

func TestLimiter_Defaults(t *testing.T) {
	l := ratelimit.New(0, 0)
	assert.Equal(t, ratelimit.DefaultSpacing, l.Spacing())
	assert.Equal(t, ratelimit.DefaultBurst, l.Burst())
}

func TestLimiter_ContextCancelledWhileWaiting(t *testing.T) {
	l := ratelimit.New(time.Hour, 1)
	_, err := l.Do(context.Background(), func() error { return nil })
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	called := false
	_, err = l.Do(ctx, func() error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, called)
}

func TestLimiter_RealClockCadence(t *testing.T) {
	if testing.Short() {
		t.Skip("waits on the real clock")
	}
	l := ratelimit.New(ratelimit.DefaultSpacing, ratelimit.DefaultBurst)

	var stamps []time.Time
	for i := 0; i < 8; i++ {
		_, err := l.Do(context.Background(), func() error {
			stamps = append(stamps, time.Now())
			return nil
		})
		require.NoError(t, err)
	}

	assert.Less(t, stamps[5].Sub(stamps[0]), 50*time.Millisecond)
	assert.GreaterOrEqual(t, stamps[6].Sub(stamps[5]), ratelimit.DefaultSpacing)
	assert.GreaterOrEqual(t, stamps[7].Sub(stamps[6]), ratelimit.DefaultSpacing)
}
