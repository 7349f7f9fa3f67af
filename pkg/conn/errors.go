package conn

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectionTimeout means no frame arrived within the read timeout.
	ErrConnectionTimeout = errors.New("connection timeout")

	// ErrConnectionClosed means the server sent a close frame or the
	// connection was closed locally.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrNoDataReceived means the stream ended without a close frame.
	ErrNoDataReceived = errors.New("no data received")
)

// HandshakeError is returned by Connect when no connection could be set up.
type HandshakeError struct {
	URL string
	Err error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("handshake with %s failed: %v", e.URL, e.Err)
}

func (e *HandshakeError) Unwrap() error { return e.Err }

// TransportError wraps a fault of the underlying transport.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsLinkError reports whether err means the connection is no longer usable.
// Callers treat such errors as a signal to reconnect from scratch.
func IsLinkError(err error) bool {
	if err == nil {
		return false
	}
	var (
		handshakeErr *HandshakeError
		transportErr *TransportError
	)
	return errors.Is(err, ErrConnectionTimeout) ||
		errors.Is(err, ErrConnectionClosed) ||
		errors.Is(err, ErrNoDataReceived) ||
		errors.As(err, &handshakeErr) ||
		errors.As(err, &transportErr)
}
