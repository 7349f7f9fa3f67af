package xapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/omochice/xapi/pkg/conn"
	"github.com/omochice/xapi/pkg/protocol"
)

// ErrOperationDisabled is returned for trading commands on a Socket opened
// in safe mode. Nothing is sent to the server.
var ErrOperationDisabled = errors.New("operation disabled in safe mode")

// Socket is the command session: every call is one request and its response.
type Socket struct {
	conn *conn.Conn
	safe bool
}

// OpenSocket connects to the command session at url.
func OpenSocket(ctx context.Context, url string, safe bool, opts ...conn.Option) (*Socket, error) {
	c, err := conn.Connect(ctx, url, opts...)
	if err != nil {
		return nil, err
	}
	return &Socket{conn: c, safe: safe}, nil
}

// Call sends command with args and decodes the response into out, which may
// be nil when only success matters.
func (s *Socket) Call(ctx context.Context, command string, args any, out any) error {
	text, err := protocol.Command{Command: command, Arguments: args}.Encode()
	if err != nil {
		return err
	}

	resp, err := s.conn.Transaction(ctx, text)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return protocol.Decode(resp, out)
}

// Login authenticates the session. The returned stream session id opens
// the Stream.
func (s *Socket) Login(ctx context.Context, accountID, password, appName string) (protocol.LoginResponse, error) {
	var resp protocol.LoginResponse
	args := protocol.LoginArguments{UserID: accountID, Password: password, AppName: appName}
	if err := s.Call(ctx, "login", args, &resp); err != nil {
		return protocol.LoginResponse{}, fmt.Errorf("failed to login: %w", err)
	}
	return resp, nil
}

// Logout ends the authenticated session. The server closes the socket
// afterwards.
func (s *Socket) Logout(ctx context.Context) error {
	return s.Call(ctx, "logout", nil, nil)
}

// Ping keeps the session alive at the application level.
func (s *Socket) Ping(ctx context.Context) error {
	return s.Call(ctx, "ping", nil, nil)
}

func (s *Socket) GetServerTime(ctx context.Context) (protocol.ServerTime, error) {
	var resp protocol.Response[protocol.ServerTime]
	err := s.Call(ctx, "getServerTime", nil, &resp)
	return resp.ReturnData, err
}

func (s *Socket) GetVersion(ctx context.Context) (protocol.Version, error) {
	var resp protocol.Response[protocol.Version]
	err := s.Call(ctx, "getVersion", nil, &resp)
	return resp.ReturnData, err
}

func (s *Socket) GetSymbol(ctx context.Context, symbol string) (protocol.Symbol, error) {
	var resp protocol.Response[protocol.Symbol]
	err := s.Call(ctx, "getSymbol", map[string]string{"symbol": symbol}, &resp)
	return resp.ReturnData, err
}

func (s *Socket) GetAllSymbols(ctx context.Context) ([]protocol.Symbol, error) {
	var resp protocol.Response[[]protocol.Symbol]
	err := s.Call(ctx, "getAllSymbols", nil, &resp)
	return resp.ReturnData, err
}

func (s *Socket) GetMarginLevel(ctx context.Context) (protocol.MarginLevel, error) {
	var resp protocol.Response[protocol.MarginLevel]
	err := s.Call(ctx, "getMarginLevel", nil, &resp)
	return resp.ReturnData, err
}

// TradeTransaction places, modifies or closes an order.
func (s *Socket) TradeTransaction(ctx context.Context, tx protocol.Transaction) (protocol.Order, error) {
	if s.safe {
		return protocol.Order{}, ErrOperationDisabled
	}
	var resp protocol.Response[protocol.Order]
	err := s.Call(ctx, "tradeTransaction", map[string]any{"tradeTransInfo": tx}, &resp)
	return resp.ReturnData, err
}

// TradeTransactionStatus reports the state of an order placed with
// TradeTransaction.
func (s *Socket) TradeTransactionStatus(ctx context.Context, order int64) (protocol.TradeStatus, error) {
	var resp protocol.Response[protocol.TradeStatus]
	err := s.Call(ctx, "tradeTransactionStatus", map[string]int64{"order": order}, &resp)
	return resp.ReturnData, err
}

// SkipDelay lets the next command bypass pacing.
func (s *Socket) SkipDelay() { s.conn.SkipDelay() }

// Conn exposes the underlying connection.
func (s *Socket) Conn() *conn.Conn { return s.conn }

// Close closes the session.
func (s *Socket) Close() error { return s.conn.Close() }
