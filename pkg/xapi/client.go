// Package xapi is a client for the xAPI trading protocol.
//
// A Client holds two sessions: a Socket for commands and a Stream for
// pushed records. Both run on conn.Conn, which paces commands and keeps the
// link alive. Link failures are returned to the caller; RunWithReconnect
// wraps an application loop that should start over after one.
package xapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/omochice/xapi/pkg/conn"
)

// Client is a logged-in command session paired with its stream session.
type Client struct {
	Socket *Socket
	Stream *Stream
}

// Connect opens the command session, logs in and opens the stream session
// with the returned stream session id. opts are applied after the tuning
// settings of cfg.
func Connect(ctx context.Context, cfg Config, opts ...conn.Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid xapi config: %w", err)
	}
	connOpts := append(cfg.ConnOptions(), opts...)

	socket, err := OpenSocket(ctx, cfg.SocketURL(), cfg.Safe, connOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open socket: %w", err)
	}

	login, err := socket.Login(ctx, cfg.AccountID, cfg.Password, cfg.AppName)
	if err != nil {
		_ = socket.Close()
		return nil, err
	}
	if login.StreamSessionID == "" {
		_ = socket.Close()
		return nil, errors.New("failed to login: no stream session id returned")
	}

	stream, err := OpenStream(ctx, cfg.StreamURL(), login.StreamSessionID, connOpts...)
	if err != nil {
		_ = socket.Close()
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}

	return &Client{Socket: socket, Stream: stream}, nil
}

// Close closes both sessions.
func (c *Client) Close() error {
	return errors.Join(c.Stream.Close(), c.Socket.Close())
}
