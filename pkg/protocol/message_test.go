package protocol_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/omochice/xapi/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommand_Encode(t *testing.T) {
	tests := []struct {
		name string
		cmd  protocol.Command
		want string
	}{
		{
			name: "command without arguments",
			cmd:  protocol.Command{Command: "ping"},
			want: `{"command":"ping"}`,
		},
		{
			name: "command with struct arguments",
			cmd: protocol.Command{
				Command:   "login",
				Arguments: protocol.LoginArguments{UserID: "1000", Password: "secret"},
			},
			want: `{"command":"login","arguments":{"userId":"1000","password":"secret"}}`,
		},
		{
			name: "command with map arguments",
			cmd: protocol.Command{
				Command:   "getSymbol",
				Arguments: map[string]any{"symbol": "EURUSD"},
			},
			want: `{"command":"getSymbol","arguments":{"symbol":"EURUSD"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cmd.Encode()
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, got)
		})
	}
}

func TestCommand_EncodeError(t *testing.T) {
	_, err := protocol.Command{Command: "bad", Arguments: map[string]any{"ch": make(chan int)}}.Encode()
	assert.Error(t, err)
}

func TestStreamCommand_Encode(t *testing.T) {
	tests := []struct {
		name string
		cmd  protocol.StreamCommand
		want string
	}{
		{
			name: "subscribe with session and fields",
			cmd: protocol.StreamCommand{
				Command:         "getTickPrices",
				StreamSessionID: "abc",
				Fields:          map[string]any{"symbol": "BITCOIN", "minArrivalTime": 0, "maxLevel": 0},
			},
			want: `{"command":"getTickPrices","streamSessionId":"abc","symbol":"BITCOIN","minArrivalTime":0,"maxLevel":0}`,
		},
		{
			name: "unsubscribe without session",
			cmd: protocol.StreamCommand{
				Command: "stopTickPrices",
				Fields:  map[string]any{"symbol": "BITCOIN"},
			},
			want: `{"command":"stopTickPrices","symbol":"BITCOIN"}`,
		},
		{
			name: "fields cannot override command",
			cmd: protocol.StreamCommand{
				Command: "getBalance",
				Fields:  map[string]any{"command": "other"},
			},
			want: `{"command":"getBalance"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cmd.Encode()
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, got)
		})
	}
}

func TestParseRemoteError(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   *protocol.RemoteError
		wantOK bool
	}{
		{
			name:   "error shape",
			text:   `{"status":false,"errorCode":"BE005","errorDescr":"userPasswordCheck: Invalid login or password"}`,
			want:   &protocol.RemoteError{Code: "BE005", Description: "userPasswordCheck: Invalid login or password"},
			wantOK: true,
		},
		{
			name: "success payload",
			text: `{"status":true}`,
		},
		{
			name: "status true with error fields",
			text: `{"status":true,"errorCode":"X","errorDescr":"Y"}`,
		},
		{
			name: "missing description",
			text: `{"status":false,"errorCode":"X"}`,
		},
		{
			name: "missing status",
			text: `{"errorCode":"X","errorDescr":"Y"}`,
		},
		{
			name: "not json",
			text: `hello`,
		},
		{
			name: "json array",
			text: `[1,2]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := protocol.ParseRemoteError(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRemoteError_Error(t *testing.T) {
	err := &protocol.RemoteError{Code: "EX001", Description: "bad"}
	assert.Equal(t, "remote error EX001: bad", err.Error())
}

func TestDecode(t *testing.T) {
	var resp protocol.Response[protocol.ServerTime]
	err := protocol.Decode(`{"status":true,"returnData":{"time":1700000000000,"timeString":"now"}}`, &resp)
	require.NoError(t, err)
	assert.True(t, resp.Status)
	assert.Equal(t, int64(1700000000000), resp.ReturnData.Time)

	err = protocol.Decode(`{"status":`, &resp)
	var decodeErr *protocol.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, `{"status":`, decodeErr.Payload)
}

func TestDecodeRecord(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantKind protocol.RecordKind
		wantErr  error
	}{
		{
			name:     "tick prices",
			text:     `{"command":"tickPrices","data":{"symbol":"BITCOIN","ask":1.5,"bid":1.4}}`,
			wantKind: protocol.KindTickPrices,
		},
		{
			name:     "keep alive",
			text:     `{"command":"keepAlive","data":{"timestamp":1}}`,
			wantKind: protocol.KindKeepAlive,
		},
		{
			name:    "unknown kind",
			text:    `{"command":"weather","data":{}}`,
			wantErr: protocol.ErrUnknownRecordKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := protocol.DecodeRecord(tt.text)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				var decodeErr *protocol.DecodeError
				assert.ErrorAs(t, err, &decodeErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, rec.Kind)
		})
	}
}

func TestDecodeRecord_ErrorShapeOnStream(t *testing.T) {
	_, err := protocol.DecodeRecord(`{"status":false,"errorCode":"BE103","errorDescr":"invalid session"}`)

	var decodeErr *protocol.DecodeError
	require.ErrorAs(t, err, &decodeErr)

	var remote *protocol.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "BE103", remote.Code)
}

func TestDecodeRecord_Malformed(t *testing.T) {
	for _, text := range []string{`not json`, `{"data":{}}`, `[]`} {
		_, err := protocol.DecodeRecord(text)
		var decodeErr *protocol.DecodeError
		assert.ErrorAs(t, err, &decodeErr, text)
		assert.False(t, errors.Is(err, protocol.ErrUnknownRecordKind), text)
	}
}

func TestRecord_Decode(t *testing.T) {
	rec, err := protocol.DecodeRecord(`{"command":"tickPrices","data":{"symbol":"EURUSD","ask":1.1,"bid":1.0,"timestamp":42}}`)
	require.NoError(t, err)

	var tick protocol.Tick
	require.NoError(t, rec.Decode(&tick))
	assert.Equal(t, "EURUSD", tick.Symbol)
	assert.Equal(t, 1.1, tick.Ask)
	assert.Equal(t, int64(42), tick.Timestamp)

	bad := protocol.Record{Kind: protocol.KindBalance, Data: json.RawMessage(`"x"`)}
	var balance protocol.Balance
	assert.Error(t, bad.Decode(&balance))
}

func TestRecordKind_Known(t *testing.T) {
	assert.True(t, protocol.KindTradeStatus.Known())
	assert.False(t, protocol.RecordKind("").Known())
}
