package conn

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)

	_, err = NewMetrics(reg)
	assert.Error(t, err)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.command("send")
		m.throttle(0.1)
		m.frame("text")
		m.heartbeat(true)
		m.linkFailure("timeout")
		m.remoteError()
	})
}

func TestConn_Metrics(t *testing.T) {
	url, _ := pingServer(t)

	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	c, err := Connect(context.Background(), url,
		WithMetrics(m),
		WithMinSpacing(20*time.Millisecond),
		WithBurstAllowance(1),
		WithReadTimeout(100*time.Millisecond),
	)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Send(context.Background(), `{"command":"ping"}`))
	require.NoError(t, c.Send(context.Background(), `{"command":"ping"}`))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.commands.WithLabelValues("send")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.throttled))

	// The ping server never writes text, so the read runs into the timeout.
	_, err = c.Receive(context.Background())
	require.ErrorIs(t, err, ErrConnectionTimeout)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.linkFailures.WithLabelValues("timeout")))
}

func TestConnect_HandshakeFailureMetric(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	_, err = Connect(context.Background(), "ws://127.0.0.1:1/demo", WithMetrics(m), WithHandshakeTimeout(time.Second))
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.linkFailures.WithLabelValues("handshake")))
}
