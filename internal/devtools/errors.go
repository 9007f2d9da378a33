package devtools

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrClosed is reported for calls that were pending when Close ran.
	ErrClosed = errors.New("connection closed")

	// ErrNotPaused is returned by frame lookups while the debuggee runs.
	ErrNotPaused = errors.New("debuggee is not paused")

	// ErrFrameOutOfRange is returned for a call frame index outside the stack.
	ErrFrameOutOfRange = errors.New("call frame index out of range")

	// ErrUnknownScript is returned when a location names a script that was never parsed.
	ErrUnknownScript = errors.New("unknown script")

	// ErrUnknownContext is returned when a script names an execution context that is gone.
	ErrUnknownContext = errors.New("unknown execution context")
)

// TransportError reports that the channel failed to open or closed unexpectedly.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolViolation reports an inbound frame that cannot be correlated.
// The connection is unusable after one is seen.
type ProtocolViolation struct {
	Reason string
	Frame  []byte
}

func (e *ProtocolViolation) Error() string {
	return fmt.Sprintf("protocol violation: %s: %s", e.Reason, truncate(e.Frame, 256))
}

// RemoteError carries an error reported by the debuggee: either the error
// payload of a response frame or the exceptionDetails of a successful one.
type RemoteError struct {
	Code    int             `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`

	// Payload is the error object exactly as received.
	Payload json.RawMessage `json:"-"`

	// Exception is set when the call completed but the function threw.
	Exception *ExceptionDetails `json:"-"`
}

func (e *RemoteError) Error() string {
	if e.Exception != nil {
		return fmt.Sprintf("remote exception: %s", e.Exception.Summary())
	}
	if e.Message != "" {
		return fmt.Sprintf("remote error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("remote error: %s", truncate(e.Payload, 256))
}

// ExceptionDetails describes an exception thrown inside the debuggee.
type ExceptionDetails struct {
	ExceptionID        int             `json:"exceptionId"`
	Text               string          `json:"text"`
	LineNumber         int             `json:"lineNumber"`
	ColumnNumber       int             `json:"columnNumber"`
	ScriptID           string          `json:"scriptId,omitempty"`
	URL                string          `json:"url,omitempty"`
	Exception          json.RawMessage `json:"exception,omitempty"`
	ExecutionContextID int             `json:"executionContextId,omitempty"`
}

// Summary returns the thrown value's description when the debuggee sent one.
func (d *ExceptionDetails) Summary() string {
	var thrown struct {
		Description string `json:"description"`
	}
	if len(d.Exception) > 0 && json.Unmarshal(d.Exception, &thrown) == nil && thrown.Description != "" {
		return thrown.Description
	}
	return d.Text
}

func newRemoteError(payload json.RawMessage) *RemoteError {
	e := &RemoteError{Payload: payload}
	// Non-object payloads are kept verbatim in Payload only.
	_ = json.Unmarshal(payload, e)
	return e
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
