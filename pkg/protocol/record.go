package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// RecordKind is the command name carried by a push message.
type RecordKind string

const (
	KindBalance     RecordKind = "balance"
	KindCandle      RecordKind = "candle"
	KindKeepAlive   RecordKind = "keepAlive"
	KindNews        RecordKind = "news"
	KindProfit      RecordKind = "profit"
	KindTickPrices  RecordKind = "tickPrices"
	KindTrade       RecordKind = "trade"
	KindTradeStatus RecordKind = "tradeStatus"
)

// Known reports whether k is one of the push kinds the stream session emits.
func (k RecordKind) Known() bool {
	switch k {
	case KindBalance, KindCandle, KindKeepAlive, KindNews,
		KindProfit, KindTickPrices, KindTrade, KindTradeStatus:
		return true
	default:
		return false
	}
}

// Record is one push message with its data left undecoded.
type Record struct {
	Kind RecordKind
	Data json.RawMessage
}

// Decode decodes the record data into v.
func (r Record) Decode(v any) error {
	if err := json.Unmarshal(r.Data, v); err != nil {
		return &DecodeError{Payload: string(r.Data), Err: err}
	}
	return nil
}

var errMissingCommand = errors.New("push message has no command field")

type pushShape struct {
	Command *string         `json:"command"`
	Data    json.RawMessage `json:"data"`
}

// DecodeRecord classifies a push message by its command field.
//
// A message without a command field is a DecodeError. If it has the
// structured error shape the RemoteError is kept as the cause. A command
// name that is not a known kind wraps ErrUnknownRecordKind.
func DecodeRecord(text string) (Record, error) {
	var shape pushShape
	if err := json.Unmarshal([]byte(text), &shape); err != nil {
		return Record{}, &DecodeError{Payload: text, Err: err}
	}

	if shape.Command == nil {
		if remote, ok := ParseRemoteError(text); ok {
			return Record{}, &DecodeError{Payload: text, Err: remote}
		}
		return Record{}, &DecodeError{Payload: text, Err: errMissingCommand}
	}

	kind := RecordKind(*shape.Command)
	if !kind.Known() {
		return Record{}, &DecodeError{
			Payload: text,
			Err:     fmt.Errorf("%w: %q", ErrUnknownRecordKind, kind),
		}
	}
	return Record{Kind: kind, Data: shape.Data}, nil
}

// Tick is the data of a tickPrices record.
type Tick struct {
	Ask         float64 `json:"ask"`
	AskVolume   int64   `json:"askVolume"`
	Bid         float64 `json:"bid"`
	BidVolume   int64   `json:"bidVolume"`
	High        float64 `json:"high"`
	Level       int64   `json:"level"`
	Low         float64 `json:"low"`
	QuoteID     *int64  `json:"quoteId,omitempty"`
	SpreadRaw   float64 `json:"spreadRaw"`
	SpreadTable float64 `json:"spreadTable"`
	Symbol      string  `json:"symbol"`
	Timestamp   int64   `json:"timestamp"`
}

// KeepAlive is the data of a keepAlive record.
type KeepAlive struct {
	Timestamp int64 `json:"timestamp"`
}

// Balance is the data of a balance record.
type Balance struct {
	Balance     float64 `json:"balance"`
	Credit      float64 `json:"credit"`
	Equity      float64 `json:"equity"`
	Margin      float64 `json:"margin"`
	MarginFree  float64 `json:"marginFree"`
	MarginLevel float64 `json:"marginLevel"`
}
