// Package ws provides the client side of a WebSocket split into two halves.
//
// The write half and the read half are locked independently so a goroutine
// blocked waiting for the next frame never stops another goroutine from
// writing, and vice versa. Each half admits one user per operation.
package ws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// Kind identifies the type of a received frame.
type Kind int

const (
	KindText Kind = iota
	KindBinary
	KindPing
	KindPong
	KindClose
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindText:
		return "TEXT"
	case KindBinary:
		return "BINARY"
	case KindPing:
		return "PING"
	case KindPong:
		return "PONG"
	case KindClose:
		return "CLOSE"
	default:
		return "UNKNOWN"
	}
}

// Frame is one data message or one control frame read off the wire.
type Frame struct {
	Kind    Kind
	Payload []byte
}

// DialOptions configures Dial.
type DialOptions struct {
	// HandshakeTimeout bounds connection setup including the upgrade.
	HandshakeTimeout time.Duration
	// WriteTimeout bounds every single frame write. Zero means no deadline.
	WriteTimeout time.Duration
}

// Conn is a client WebSocket connection with separate read and write halves.
type Conn struct {
	conn   net.Conn
	writer *Writer
	reader *Reader
	addr   string
}

// Dial performs the opening handshake with the server at url.
func Dial(ctx context.Context, url string, opts DialOptions) (*Conn, error) {
	dialer := ws.Dialer{Timeout: opts.HandshakeTimeout}

	conn, br, _, err := dialer.Dial(ctx, url)
	if err != nil {
		return nil, err
	}

	// br holds frames the server sent right behind the handshake response.
	var src io.Reader = conn
	if br != nil {
		src = br
	}

	return &Conn{
		conn:   conn,
		writer: &Writer{conn: conn, timeout: opts.WriteTimeout},
		reader: &Reader{
			conn: conn,
			rd: &wsutil.Reader{
				Source:    src,
				State:     ws.StateClientSide,
				CheckUTF8: true,
			},
		},
		addr: conn.RemoteAddr().String(),
	}, nil
}

// Writer returns the write half.
func (c *Conn) Writer() *Writer { return c.writer }

// Reader returns the read half.
func (c *Conn) Reader() *Reader { return c.reader }

// NetConn returns the underlying network connection.
func (c *Conn) NetConn() net.Conn { return c.conn }

// RemoteAddr returns the server address for logging.
func (c *Conn) RemoteAddr() string { return c.addr }

// Close sends a normal closure frame if possible and closes the socket.
func (c *Conn) Close() error {
	_ = c.writer.WriteClose()
	c.writer.closed.Store(true)
	return c.conn.Close()
}

// Writer is the outbound half. Frames are written whole under its lock.
type Writer struct {
	mu      sync.Mutex
	conn    net.Conn
	timeout time.Duration
	closed  atomic.Bool
}

// WriteText writes a single text message.
func (w *Writer) WriteText(p []byte) error { return w.write(ws.OpText, p) }

// WritePing writes a ping control frame.
func (w *Writer) WritePing(p []byte) error { return w.write(ws.OpPing, p) }

// WritePong writes a pong control frame.
func (w *Writer) WritePong(p []byte) error { return w.write(ws.OpPong, p) }

// WriteClose writes a close frame with a normal closure status.
func (w *Writer) WriteClose() error {
	return w.write(ws.OpClose, ws.NewCloseFrameBody(ws.StatusNormalClosure, ""))
}

// Closed reports whether the connection owning w has been closed.
func (w *Writer) Closed() bool { return w.closed.Load() }

func (w *Writer) write(op ws.OpCode, p []byte) error {
	if w.closed.Load() {
		return net.ErrClosed
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timeout > 0 {
		if err := w.conn.SetWriteDeadline(time.Now().Add(w.timeout)); err != nil {
			return err
		}
	}
	return wsutil.WriteClientMessage(w.conn, op, p)
}

// Reader is the inbound half.
type Reader struct {
	mu   sync.Mutex
	conn net.Conn
	rd   *wsutil.Reader
}

// ReadFrame blocks until a complete frame arrives or timeout elapses.
// Fragmented data messages are reassembled and returned as one frame.
// A non-positive timeout waits indefinitely.
func (r *Reader) ReadFrame(timeout time.Duration) (Frame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deadline := time.Time{}
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := r.conn.SetReadDeadline(deadline); err != nil {
		return Frame{}, err
	}

	hdr, err := r.rd.NextFrame()
	if err != nil {
		return Frame{}, err
	}

	kind, err := kindOf(hdr.OpCode)
	if err != nil {
		return Frame{}, err
	}

	payload, err := io.ReadAll(r.rd)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Kind: kind, Payload: payload}, nil
}

// ErrUnexpectedOpCode is returned for frames that cannot start a message.
var ErrUnexpectedOpCode = errors.New("unexpected websocket opcode")

func kindOf(op ws.OpCode) (Kind, error) {
	switch op {
	case ws.OpText:
		return KindText, nil
	case ws.OpBinary:
		return KindBinary, nil
	case ws.OpPing:
		return KindPing, nil
	case ws.OpPong:
		return KindPong, nil
	case ws.OpClose:
		return KindClose, nil
	default:
		return 0, fmt.Errorf("%w: %#x", ErrUnexpectedOpCode, byte(op))
	}
}

// IsTimeout reports whether err is a read or write deadline expiry.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsEndOfStream reports whether err means the peer stopped sending.
func IsEndOfStream(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// IsClosed reports whether err comes from using a locally closed socket.
func IsClosed(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
