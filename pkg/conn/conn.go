// Package conn is the connection and transaction layer of the xAPI client.
//
// The server speaks a command/response protocol over one WebSocket without
// any request identifiers, so a response is matched to its request purely by
// arrival order. Conn makes that safe for concurrent callers: Transaction
// admits one exchange at a time, every command is paced by a rate limiter,
// and a background heartbeat keeps the link alive. Push traffic is read with
// Receive, normally on a second Conn dedicated to the stream session.
package conn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"weak"

	"github.com/omochice/xapi/internal/ratelimit"
	"github.com/omochice/xapi/internal/transport/ws"
	"github.com/omochice/xapi/pkg/protocol"
	"go.uber.org/zap"
)

// State is the lifecycle state of a Conn.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Conn is one logical session bound to one WebSocket. It is safe for
// concurrent use. Transactions and Receive must not be mixed on the same
// Conn while push traffic is active, since both read the same inbound half.
type Conn struct {
	url         string
	tr          *ws.Conn
	writer      *ws.Writer
	reader      *ws.Reader
	limiter     *ratelimit.Limiter
	gate        chan struct{}
	state       atomic.Int32
	readTimeout time.Duration
	life        *lifecycle
	logger      *zap.Logger
	metrics     *Metrics
}

// lifecycle is what outlives the Conn: it must not point back at it, or the
// cleanup registered in Connect would keep the Conn reachable forever.
type lifecycle struct {
	once sync.Once
	done chan struct{}
	nc   io.Closer
}

func (l *lifecycle) shutdown() {
	l.once.Do(func() {
		close(l.done)
		_ = l.nc.Close()
	})
}

// Connect dials url, performs the WebSocket handshake and starts the
// heartbeat. The heartbeat stops when the Conn is closed or becomes
// unreachable.
func Connect(ctx context.Context, url string, opts ...Option) (*Conn, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.With(zap.String("component", "conn"), zap.String("url", url))

	tr, err := ws.Dial(ctx, url, ws.DialOptions{
		HandshakeTimeout: o.handshakeTimeout,
		WriteTimeout:     o.writeTimeout,
	})
	if err != nil {
		o.metrics.linkFailure("handshake")
		return nil, &HandshakeError{URL: url, Err: err}
	}

	c := &Conn{
		url:         url,
		tr:          tr,
		writer:      tr.Writer(),
		reader:      tr.Reader(),
		limiter:     ratelimit.New(o.minSpacing, o.burstAllowance),
		gate:        make(chan struct{}, 1),
		readTimeout: o.effectiveReadTimeout(),
		life:        &lifecycle{done: make(chan struct{}), nc: tr.NetConn()},
		logger:      logger,
		metrics:     o.metrics,
	}
	c.state.Store(int32(StateOpen))

	runtime.AddCleanup(c, (*lifecycle).shutdown, c.life)
	go heartbeat(weak.Make(c.writer), o.heartbeatPeriod, c.life.done, logger, o.metrics)

	logger.Info("connected", zap.String("remote", tr.RemoteAddr()))
	return c, nil
}

// URL returns the address the Conn was dialed with.
func (c *Conn) URL() string { return c.url }

// State returns the current lifecycle state.
func (c *Conn) State() State { return State(c.state.Load()) }

// Transaction writes command and waits for its response. Only one
// transaction is in flight per Conn, so the first text frame that arrives
// after the write is the response to it.
//
// A response with the structured error shape is returned as a
// *protocol.RemoteError; otherwise the raw payload text is returned for the
// caller to decode. ctx bounds the wait for the transaction gate and the
// rate limiter. Once the command is written the response is awaited until the
// read timeout, so an abandoned exchange never leaves a stray response behind.
func (c *Conn) Transaction(ctx context.Context, command string) (string, error) {
	select {
	case c.gate <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-c.gate }()

	if err := c.send(ctx, command, "transaction"); err != nil {
		return "", err
	}

	resp, err := c.receive()
	if err != nil {
		return "", err
	}

	if remote, ok := protocol.ParseRemoteError(resp); ok {
		c.metrics.remoteError()
		c.logger.Debug("command rejected",
			zap.String("code", remote.Code),
			zap.String("description", remote.Description))
		return "", remote
	}
	return resp, nil
}

// Send writes command without waiting for a response. Streaming subscribe
// and unsubscribe commands use it.
func (c *Conn) Send(ctx context.Context, command string) error {
	return c.send(ctx, command, "send")
}

// Receive returns the next text payload read off the connection. Control
// and binary frames are skipped. ctx is only checked before reading starts;
// use Close to interrupt a pending Receive.
func (c *Conn) Receive(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return c.receive()
}

// SkipDelay makes the next command leave immediately regardless of pacing.
func (c *Conn) SkipDelay() {
	c.limiter.Skip()
}

// Close sends a close frame, closes the socket and stops the heartbeat.
// Pending operations fail with ErrConnectionClosed.
func (c *Conn) Close() error {
	if State(c.state.Swap(int32(StateClosed))) != StateClosed {
		_ = c.tr.Close()
		c.logger.Info("closed")
	}
	c.life.shutdown()
	return nil
}

func (c *Conn) send(ctx context.Context, command, kind string) error {
	if c.State() == StateClosed {
		return ErrConnectionClosed
	}

	delay, err := c.limiter.Do(ctx, func() error {
		return c.writer.WriteText([]byte(command))
	})
	if delay > 0 {
		c.metrics.throttle(delay.Seconds())
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return err
		}
		return c.fail(writeError(err))
	}

	c.metrics.command(kind)
	c.logger.Debug("sent", zap.String("kind", kind), zap.Int("bytes", len(command)), zap.Duration("delay", delay))
	return nil
}

func (c *Conn) receive() (string, error) {
	if c.State() == StateClosed {
		return "", ErrConnectionClosed
	}

	for {
		frame, err := c.reader.ReadFrame(c.readTimeout)
		if err != nil {
			return "", c.fail(c.readError(err))
		}
		c.metrics.frame(frame.Kind.String())

		switch frame.Kind {
		case ws.KindText:
			text := string(frame.Payload)
			c.logger.Debug("received", zap.String("payload", text))
			return text, nil
		case ws.KindClose:
			return "", c.fail(ErrConnectionClosed)
		case ws.KindPing:
			if err := c.writer.WritePong(frame.Payload); err != nil {
				c.logger.Debug("pong failed", zap.Error(err))
			}
		}
	}
}

// fail marks the Conn closed after a link-level failure and releases the
// socket. The first failure is logged; later ones are returned silently.
func (c *Conn) fail(err error) error {
	if State(c.state.Swap(int32(StateClosed))) != StateClosed {
		c.logger.Warn("link failure", zap.Error(err))
		c.metrics.linkFailure(failureReason(err))
	}
	c.life.shutdown()
	return err
}

func (c *Conn) readError(err error) error {
	switch {
	case ws.IsTimeout(err):
		return fmt.Errorf("%w: nothing received for %s", ErrConnectionTimeout, c.readTimeout)
	case ws.IsEndOfStream(err):
		return ErrNoDataReceived
	case ws.IsClosed(err):
		return ErrConnectionClosed
	default:
		return &TransportError{Op: "read", Err: err}
	}
}

func writeError(err error) error {
	if ws.IsClosed(err) {
		return ErrConnectionClosed
	}
	return &TransportError{Op: "write", Err: err}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrConnectionTimeout):
		return "timeout"
	case errors.Is(err, ErrConnectionClosed):
		return "closed"
	case errors.Is(err, ErrNoDataReceived):
		return "eof"
	default:
		return "transport"
	}
}
