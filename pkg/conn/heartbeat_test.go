package conn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"weak"

	"github.com/gorilla/websocket"
	"github.com/omochice/xapi/internal/transport/ws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// pingServer counts the pings it receives.
func pingServer(t *testing.T) (string, *atomic.Int64) {
	t.Helper()
	var pings atomic.Int64
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		c.SetPingHandler(func(string) error {
			pings.Add(1)
			return nil
		})
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http"), &pings
}

func dialWS(t *testing.T, url string) *ws.Conn {
	t.Helper()
	tr, err := ws.Dial(context.Background(), url, ws.DialOptions{HandshakeTimeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func runHeartbeat(ref weak.Pointer[ws.Writer], period time.Duration, done <-chan struct{}, m *Metrics) <-chan struct{} {
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		heartbeat(ref, period, done, zap.NewNop(), m)
	}()
	return finished
}

func TestPing_ReleasedWriter(t *testing.T) {
	var ref weak.Pointer[ws.Writer]
	assert.False(t, ping(ref, zap.NewNop(), nil))
}

func TestHeartbeat_PingsEveryPeriod(t *testing.T) {
	url, pings := pingServer(t)
	tr := dialWS(t, url)

	done := make(chan struct{})
	finished := runHeartbeat(weak.Make(tr.Writer()), 10*time.Millisecond, done, nil)

	require.Eventually(t, func() bool { return pings.Load() >= 5 }, time.Second, 5*time.Millisecond)

	close(done)
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("heartbeat did not stop")
	}
}

func TestHeartbeat_StopsWhenWriterClosed(t *testing.T) {
	url, _ := pingServer(t)
	tr := dialWS(t, url)

	finished := runHeartbeat(weak.Make(tr.Writer()), 10*time.Millisecond, make(chan struct{}), nil)
	require.NoError(t, tr.Close())

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("heartbeat kept running after the writer closed")
	}
}

func TestHeartbeat_RecordsMetrics(t *testing.T) {
	url, _ := pingServer(t)
	tr := dialWS(t, url)

	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	require.True(t, ping(weak.Make(tr.Writer()), zap.NewNop(), m))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.heartbeats.WithLabelValues("ok")))

	// A dead socket is swallowed: the heartbeat keeps going and the failure
	// is only counted.
	require.NoError(t, tr.NetConn().Close())
	require.True(t, ping(weak.Make(tr.Writer()), zap.NewNop(), m))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.heartbeats.WithLabelValues("error")))
}
