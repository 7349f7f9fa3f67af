// Package protocol defines the JSON shapes exchanged with the xAPI server.
//
// Commands are single text frames of the form
//
//	{"command":"getSymbol","arguments":{"symbol":"EURUSD"}}
//
// on the command session, and flat objects carrying a streamSessionId on the
// stream session. Responses are either a success envelope or the error shape
// recognised by ParseRemoteError.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Command is a request sent on the command session.
type Command struct {
	Command   string `json:"command"`
	Arguments any    `json:"arguments,omitempty"`
}

// Encode encodes the command into the text sent over the wire.
func (c Command) Encode() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to encode command %q: %w", c.Command, err)
	}
	return string(data), nil
}

// StreamCommand is a subscription request sent on the stream session. The
// stream protocol carries command arguments as top-level fields.
type StreamCommand struct {
	Command         string
	StreamSessionID string
	Fields          map[string]any
}

// Encode encodes the stream command into the text sent over the wire.
func (c StreamCommand) Encode() (string, error) {
	obj := make(map[string]any, len(c.Fields)+2)
	for k, v := range c.Fields {
		obj[k] = v
	}
	obj["command"] = c.Command
	if c.StreamSessionID != "" {
		obj["streamSessionId"] = c.StreamSessionID
	}

	data, err := json.Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("failed to encode stream command %q: %w", c.Command, err)
	}
	return string(data), nil
}

// Response is the success envelope of most command-session replies.
type Response[T any] struct {
	Status     bool `json:"status"`
	ReturnData T    `json:"returnData"`
}

// StatusResponse is a reply carrying nothing but the status flag.
type StatusResponse struct {
	Status bool `json:"status"`
}

// LoginResponse is the reply to a successful login.
type LoginResponse struct {
	Status          bool   `json:"status"`
	StreamSessionID string `json:"streamSessionId"`
}

// LoginArguments are the arguments of the login command.
type LoginArguments struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
	AppName  string `json:"appName,omitempty"`
}

// ServerTime is the returnData of getServerTime.
type ServerTime struct {
	Time       int64  `json:"time"`
	TimeString string `json:"timeString"`
}

// Decode decodes a success payload into v.
func Decode(text string, v any) error {
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return &DecodeError{Payload: text, Err: err}
	}
	return nil
}
