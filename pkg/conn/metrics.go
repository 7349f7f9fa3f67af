package conn

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors updated by connections. One
// Metrics value may be shared by any number of connections. A nil *Metrics
// records nothing.
type Metrics struct {
	commands     *prometheus.CounterVec
	throttled    prometheus.Counter
	throttleWait prometheus.Histogram
	frames       *prometheus.CounterVec
	heartbeats   *prometheus.CounterVec
	linkFailures *prometheus.CounterVec
	remoteErrors prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xapi",
			Subsystem: "conn",
			Name:      "commands_total",
			Help:      "Commands written, by kind (transaction or send).",
		}, []string{"kind"}),
		throttled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "xapi",
			Subsystem: "conn",
			Name:      "throttled_total",
			Help:      "Commands delayed by the rate limiter.",
		}),
		throttleWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "xapi",
			Subsystem: "conn",
			Name:      "throttle_wait_seconds",
			Help:      "Time commands spent waiting for the rate limiter.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.15, 0.2},
		}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xapi",
			Subsystem: "conn",
			Name:      "frames_received_total",
			Help:      "Frames read off the wire, by kind.",
		}, []string{"kind"}),
		heartbeats: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xapi",
			Subsystem: "conn",
			Name:      "heartbeats_total",
			Help:      "Keep-alive pings attempted, by result.",
		}, []string{"result"}),
		linkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xapi",
			Subsystem: "conn",
			Name:      "link_failures_total",
			Help:      "Fatal link conditions observed, by reason.",
		}, []string{"reason"}),
		remoteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "xapi",
			Subsystem: "conn",
			Name:      "remote_errors_total",
			Help:      "Commands rejected by the server.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.commands, m.throttled, m.throttleWait, m.frames,
		m.heartbeats, m.linkFailures, m.remoteErrors,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) command(kind string) {
	if m != nil {
		m.commands.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) throttle(seconds float64) {
	if m != nil {
		m.throttled.Inc()
		m.throttleWait.Observe(seconds)
	}
}

func (m *Metrics) frame(kind string) {
	if m != nil {
		m.frames.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) heartbeat(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.heartbeats.WithLabelValues(result).Inc()
}

func (m *Metrics) linkFailure(reason string) {
	if m != nil {
		m.linkFailures.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) remoteError() {
	if m != nil {
		m.remoteErrors.Inc()
	}
}
