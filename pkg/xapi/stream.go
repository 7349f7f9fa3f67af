package xapi

import (
	"context"

	"github.com/omochice/xapi/pkg/conn"
	"github.com/omochice/xapi/pkg/protocol"
)

// Stream is the push session. Subscriptions are fire-and-forget; records
// arrive through Listen.
type Stream struct {
	conn      *conn.Conn
	sessionID string
}

// OpenStream connects to the stream session at url. sessionID is the
// streamSessionId returned by Login.
func OpenStream(ctx context.Context, url, sessionID string, opts ...conn.Option) (*Stream, error) {
	c, err := conn.Connect(ctx, url, opts...)
	if err != nil {
		return nil, err
	}
	return &Stream{conn: c, sessionID: sessionID}, nil
}

// Subscribe sends a subscription command with the stream session id
// attached.
func (s *Stream) Subscribe(ctx context.Context, command string, fields map[string]any) error {
	return s.send(ctx, protocol.StreamCommand{Command: command, StreamSessionID: s.sessionID, Fields: fields})
}

// Unsubscribe sends a stop command. Stop commands carry no session id.
func (s *Stream) Unsubscribe(ctx context.Context, command string, fields map[string]any) error {
	return s.send(ctx, protocol.StreamCommand{Command: command, Fields: fields})
}

func (s *Stream) send(ctx context.Context, cmd protocol.StreamCommand) error {
	text, err := cmd.Encode()
	if err != nil {
		return err
	}
	return s.conn.Send(ctx, text)
}

func (s *Stream) SubscribeBalance(ctx context.Context) error {
	return s.Subscribe(ctx, "getBalance", nil)
}

func (s *Stream) StopBalance(ctx context.Context) error {
	return s.Unsubscribe(ctx, "stopBalance", nil)
}

func (s *Stream) SubscribeCandles(ctx context.Context, symbol string) error {
	return s.Subscribe(ctx, "getCandles", map[string]any{"symbol": symbol})
}

func (s *Stream) StopCandles(ctx context.Context, symbol string) error {
	return s.Unsubscribe(ctx, "stopCandles", map[string]any{"symbol": symbol})
}

func (s *Stream) SubscribeKeepAlive(ctx context.Context) error {
	return s.Subscribe(ctx, "getKeepAlive", nil)
}

func (s *Stream) StopKeepAlive(ctx context.Context) error {
	return s.Unsubscribe(ctx, "stopKeepAlive", nil)
}

func (s *Stream) SubscribeNews(ctx context.Context) error {
	return s.Subscribe(ctx, "getNews", nil)
}

func (s *Stream) StopNews(ctx context.Context) error {
	return s.Unsubscribe(ctx, "stopNews", nil)
}

func (s *Stream) SubscribeProfits(ctx context.Context) error {
	return s.Subscribe(ctx, "getProfits", nil)
}

func (s *Stream) StopProfits(ctx context.Context) error {
	return s.Unsubscribe(ctx, "stopProfits", nil)
}

// SubscribeTickPrices streams quotes for symbol. minArrivalTime is the
// minimal interval in milliseconds between two pushes; maxLevel limits the
// depth of market levels sent.
func (s *Stream) SubscribeTickPrices(ctx context.Context, symbol string, minArrivalTime, maxLevel int64) error {
	return s.Subscribe(ctx, "getTickPrices", map[string]any{
		"symbol":         symbol,
		"minArrivalTime": minArrivalTime,
		"maxLevel":       maxLevel,
	})
}

func (s *Stream) StopTickPrices(ctx context.Context, symbol string) error {
	return s.Unsubscribe(ctx, "stopTickPrices", map[string]any{"symbol": symbol})
}

func (s *Stream) SubscribeTrades(ctx context.Context) error {
	return s.Subscribe(ctx, "getTrades", nil)
}

func (s *Stream) StopTrades(ctx context.Context) error {
	return s.Unsubscribe(ctx, "stopTrades", nil)
}

func (s *Stream) SubscribeTradeStatus(ctx context.Context) error {
	return s.Subscribe(ctx, "getTradeStatus", nil)
}

func (s *Stream) StopTradeStatus(ctx context.Context) error {
	return s.Unsubscribe(ctx, "stopTradeStatus", nil)
}

// Ping keeps the stream session alive at the application level.
func (s *Stream) Ping(ctx context.Context) error {
	return s.Subscribe(ctx, "ping", nil)
}

// Listen blocks for the next pushed record. A record of an unknown kind or
// a malformed frame fails with *protocol.DecodeError and leaves the stream
// usable; link failures are reported as by conn.Conn.Receive.
func (s *Stream) Listen(ctx context.Context) (protocol.Record, error) {
	text, err := s.conn.Receive(ctx)
	if err != nil {
		return protocol.Record{}, err
	}
	return protocol.DecodeRecord(text)
}

// SkipDelay lets the next command bypass pacing.
func (s *Stream) SkipDelay() { s.conn.SkipDelay() }

// Conn exposes the underlying connection.
func (s *Stream) Conn() *conn.Conn { return s.conn }

// Close closes the session.
func (s *Stream) Close() error { return s.conn.Close() }
