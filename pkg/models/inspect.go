package models

import "encoding/json"

// EvaluateRequest is the payload for evaluating an expression
type EvaluateRequest struct {
	Expression string `json:"expression"`
	ContextID  int    `json:"contextId,omitempty"`
}

// PauseState describes whether the debuggee is suspended and where
type PauseState struct {
	Paused bool         `json:"paused"`
	Reason string       `json:"reason,omitempty"`
	Frames []FrameState `json:"frames"`
}

// FrameState is one paused call frame with its resolved source location
type FrameState struct {
	CallFrameID  string `json:"callFrameId"`
	FunctionName string `json:"functionName"`
	ScriptID     string `json:"scriptId"`
	URL          string `json:"url,omitempty"`
	LineNumber   int    `json:"lineNumber"`
	ColumnNumber int    `json:"columnNumber"`
}

// ObjectView is a remote value as shown to API clients
type ObjectView struct {
	ObjectID   string          `json:"objectId,omitempty"`
	Type       string          `json:"type"`
	Subtype    string          `json:"subtype,omitempty"`
	Summary    string          `json:"summary"`
	Text       string          `json:"text"`
	Descriptor json.RawMessage `json:"descriptor"`
}

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Error   string          `json:"error"`
	Payload json.RawMessage `json:"payload,omitempty"` // verbatim remote error, when there is one
}
