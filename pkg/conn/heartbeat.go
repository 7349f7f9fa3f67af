package conn

import (
	"time"
	"weak"

	"github.com/omochice/xapi/internal/transport/ws"
	"go.uber.org/zap"
)

// heartbeat pings the server every period until the connection is closed
// or its writer has been garbage collected. It only holds a weak pointer
// between pings so it never keeps an abandoned connection alive.
func heartbeat(ref weak.Pointer[ws.Writer], period time.Duration, done <-chan struct{}, logger *zap.Logger, m *Metrics) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		if !ping(ref, logger, m) {
			logger.Debug("heartbeat stopped: connection released")
			return
		}

		select {
		case <-done:
			logger.Debug("heartbeat stopped: connection closed")
			return
		case <-ticker.C:
		}
	}
}

// ping sends one keep-alive frame. Failures are not fatal: a dead link shows
// up as a read timeout. It returns false once the writer is gone.
func ping(ref weak.Pointer[ws.Writer], logger *zap.Logger, m *Metrics) bool {
	w := ref.Value()
	if w == nil || w.Closed() {
		return false
	}

	if err := w.WritePing(nil); err != nil {
		logger.Debug("heartbeat failed", zap.Error(err))
		m.heartbeat(false)
		return true
	}
	m.heartbeat(true)
	return true
}
