// Package ratelimit paces outbound commands to the spacing the server expects.
//
// The server tolerates a short run of commands sent faster than the minimum
// spacing. Once that run is used up, every further command is delayed until
// the spacing has elapsed since the previous one. A write that arrives after
// a natural gap starts a new run.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultSpacing is the minimum interval between two paced writes.
	DefaultSpacing = 200 * time.Millisecond

	// DefaultBurst is the number of consecutive writes allowed to skip pacing.
	DefaultBurst = 6
)

// Limiter tracks the time of the last write and the length of the current
// run of fast writes. It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	spacing time.Duration
	burst   int

	last time.Time
	run  int

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces the time source and the sleep function. Tests use it to
// drive the limiter without waiting.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
		if sleep != nil {
			l.sleep = sleep
		}
	}
}

// New creates a Limiter. Non-positive arguments fall back to the defaults.
func New(spacing time.Duration, burst int, opts ...Option) *Limiter {
	if spacing <= 0 {
		spacing = DefaultSpacing
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	l := &Limiter{
		spacing: spacing,
		burst:   burst,
		now:     time.Now,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Spacing returns the configured minimum spacing.
func (l *Limiter) Spacing() time.Duration { return l.spacing }

// Burst returns the configured burst allowance.
func (l *Limiter) Burst() int { return l.burst }

// Do waits until a write is permitted, runs write and records the write time
// if it succeeded. The limiter stays locked for the whole call so paced writes
// leave in the order they were admitted. It returns the delay that was
// applied before write ran.
func (l *Limiter) Do(ctx context.Context, write func() error) (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	d := l.delay(l.now())
	if d > 0 {
		if err := l.sleep(ctx, d); err != nil {
			return d, err
		}
	}

	if err := write(); err != nil {
		return d, err
	}
	l.last = l.now()
	return d, nil
}

// Delay reports how long a write issued at now has to wait and updates the
// run counter as if that write happened. It does not record a write time.
func (l *Limiter) Delay(now time.Time) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.delay(now)
}

// Skip forgets the last write so the next one is never delayed.
func (l *Limiter) Skip() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last = time.Time{}
	l.run = 0
}

// delay must be called with l.mu held.
func (l *Limiter) delay(now time.Time) time.Duration {
	if l.last.IsZero() {
		l.run = 1
		return 0
	}

	elapsed := now.Sub(l.last)
	if elapsed >= l.spacing {
		l.run = 1
		return 0
	}

	if l.run < l.burst {
		l.run++
		return 0
	}

	// run stays saturated until a natural gap resets it.
	return l.spacing - elapsed
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
