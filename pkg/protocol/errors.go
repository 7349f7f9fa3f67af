package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// RemoteError is a well-formed rejection of a command by the server. It does
// not mean the link is broken.
type RemoteError struct {
	Code        string
	Description string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error %s: %s", e.Code, e.Description)
}

// errorShape mirrors {"status":false,"errorCode":"...","errorDescr":"..."}.
// Pointers distinguish absent fields from zero values.
type errorShape struct {
	Status     *bool   `json:"status"`
	ErrorCode  *string `json:"errorCode"`
	ErrorDescr *string `json:"errorDescr"`
}

// ParseRemoteError reports whether text has the structured error shape and
// returns it as a RemoteError. It requires status to be false and both the
// code and the description to be present.
func ParseRemoteError(text string) (*RemoteError, bool) {
	var shape errorShape
	if err := json.Unmarshal([]byte(text), &shape); err != nil {
		return nil, false
	}
	if shape.Status == nil || *shape.Status || shape.ErrorCode == nil || shape.ErrorDescr == nil {
		return nil, false
	}
	return &RemoteError{Code: *shape.ErrorCode, Description: *shape.ErrorDescr}, true
}

// ErrUnknownRecordKind is wrapped by DecodeError when a push message names a
// command this package does not know.
var ErrUnknownRecordKind = errors.New("unknown record kind")

// DecodeError reports a payload that could not be decoded.
type DecodeError struct {
	Payload string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %q: %v", truncate(e.Payload, 128), e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
