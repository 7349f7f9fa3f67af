package xapi

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/omochice/xapi/pkg/conn"
	"go.uber.org/zap"
)

// Backoff shapes the wait between reconnection attempts.
type Backoff struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// DefaultBackoff starts at five seconds and doubles up to a minute.
func DefaultBackoff() Backoff {
	return Backoff{
		InitialDelay: 5 * time.Second,
		Multiplier:   2,
		MaxDelay:     time.Minute,
		Jitter:       true,
	}
}

// Delay returns the wait before attempt N (1-based).
func (b Backoff) Delay(attempt int, rng *rand.Rand) time.Duration {
	if attempt <= 1 {
		return b.InitialDelay
	}
	if b.InitialDelay <= 0 {
		return 0
	}
	if b.Multiplier < 1.0 {
		b.Multiplier = 1.0
	}
	delay := float64(b.InitialDelay) * math.Pow(b.Multiplier, float64(attempt-1))
	if b.MaxDelay > 0 && delay > float64(b.MaxDelay) {
		delay = float64(b.MaxDelay)
	}
	if b.Jitter {
		f := 0.5
		if rng != nil {
			f = 0.5 + rng.Float64()
		}
		delay = delay * f
	}
	return time.Duration(delay)
}

// RunWithReconnect calls run until it returns nil, a non-link error, or ctx
// is done. After a link error it waits according to b and calls run again,
// which is expected to reconnect and resubscribe from scratch. The attempt
// counter resets whenever run stayed up for longer than b.MaxDelay.
func RunWithReconnect(ctx context.Context, b Backoff, logger *zap.Logger, run func(ctx context.Context) error) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	attempt := 0
	for {
		started := time.Now()
		err := run(ctx)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !conn.IsLinkError(err) {
			return err
		}

		if b.MaxDelay > 0 && time.Since(started) > b.MaxDelay {
			attempt = 0
		}
		attempt++
		delay := b.Delay(attempt, rng)
		logger.Warn("link lost, reconnecting",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
