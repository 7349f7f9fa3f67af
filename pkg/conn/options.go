package conn

import (
	"time"

	"github.com/omochice/xapi/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	// DefaultHeartbeatPeriod is the interval between keep-alive pings.
	DefaultHeartbeatPeriod = 5 * time.Second

	// DefaultHandshakeTimeout bounds Connect.
	DefaultHandshakeTimeout = 10 * time.Second

	// DefaultWriteTimeout bounds a single frame write.
	DefaultWriteTimeout = 10 * time.Second
)

type options struct {
	logger           *zap.Logger
	metrics          *Metrics
	heartbeatPeriod  time.Duration
	readTimeout      time.Duration
	handshakeTimeout time.Duration
	writeTimeout     time.Duration
	minSpacing       time.Duration
	burstAllowance   int
}

func defaultOptions() options {
	return options{
		logger:           zap.NewNop(),
		heartbeatPeriod:  DefaultHeartbeatPeriod,
		handshakeTimeout: DefaultHandshakeTimeout,
		writeTimeout:     DefaultWriteTimeout,
		minSpacing:       ratelimit.DefaultSpacing,
		burstAllowance:   ratelimit.DefaultBurst,
	}
}

// Option configures Connect.
type Option func(*options)

// WithLogger sets the logger. Frames are logged at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records connection activity into m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithHeartbeatPeriod sets the ping interval. Unless WithReadTimeout is
// given, the read timeout is three times this period.
func WithHeartbeatPeriod(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.heartbeatPeriod = d
		}
	}
}

// WithReadTimeout overrides the time Receive waits for a frame.
func WithReadTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.readTimeout = d
		}
	}
}

// WithHandshakeTimeout bounds connection setup.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.handshakeTimeout = d
		}
	}
}

// WithWriteTimeout bounds each frame write.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.writeTimeout = d
		}
	}
}

// WithMinSpacing sets the minimum interval between paced commands.
func WithMinSpacing(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.minSpacing = d
		}
	}
}

// WithBurstAllowance sets how many consecutive commands may skip pacing.
func WithBurstAllowance(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.burstAllowance = n
		}
	}
}

func (o options) effectiveReadTimeout() time.Duration {
	if o.readTimeout > 0 {
		return o.readTimeout
	}
	return 3 * o.heartbeatPeriod
}
