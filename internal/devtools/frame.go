package devtools

import (
	"encoding/json"
	"fmt"
)

// Protocol methods issued by this package and its callers.
const (
	MethodRuntimeEnable                  = "Runtime.enable"
	MethodRuntimeEvaluate                = "Runtime.evaluate"
	MethodRuntimeCallFunctionOn          = "Runtime.callFunctionOn"
	MethodRuntimeGetProperties           = "Runtime.getProperties"
	MethodRuntimeReleaseObject           = "Runtime.releaseObject"
	MethodRuntimeReleaseObjectGroup      = "Runtime.releaseObjectGroup"
	MethodRuntimeRunIfWaitingForDebugger = "Runtime.runIfWaitingForDebugger"
	MethodDebuggerEnable                 = "Debugger.enable"
	MethodDebuggerPause                  = "Debugger.pause"
	MethodDebuggerResume                 = "Debugger.resume"
	MethodDebuggerStepOver               = "Debugger.stepOver"
	MethodDebuggerStepInto               = "Debugger.stepInto"
	MethodDebuggerStepOut                = "Debugger.stepOut"
	MethodHeapProfilerEnable             = "HeapProfiler.enable"
	MethodHeapProfilerTakeHeapSnapshot   = "HeapProfiler.takeHeapSnapshot"
)

// request is an outgoing frame.
type request struct {
	ID     int64  `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
	Type   string `json:"type"`
}

// inboundFrame holds the fields used to classify a received frame.
// Presence matters more than content, so every field is nullable.
type inboundFrame struct {
	ID     *int64          `json:"id"`
	Method *string         `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

// Event is an inbound notification as delivered to event handlers.
type Event struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// ExecutionContext describes a global scope in the debuggee.
type ExecutionContext struct {
	ID       int             `json:"id"`
	Origin   string          `json:"origin"`
	Name     string          `json:"name"`
	UniqueID string          `json:"uniqueId,omitempty"`
	AuxData  json.RawMessage `json:"auxData,omitempty"`
}

// Script is the metadata reported by Debugger.scriptParsed.
type Script struct {
	ScriptID           string          `json:"scriptId"`
	URL                string          `json:"url"`
	StartLine          int             `json:"startLine"`
	StartColumn        int             `json:"startColumn"`
	EndLine            int             `json:"endLine"`
	EndColumn          int             `json:"endColumn"`
	ExecutionContextID int             `json:"executionContextId"`
	Hash               string          `json:"hash,omitempty"`
	SourceMapURL       string          `json:"sourceMapURL,omitempty"`
	IsModule           bool            `json:"isModule,omitempty"`
	Length             int             `json:"length,omitempty"`
	ScriptLanguage     string          `json:"scriptLanguage,omitempty"`
	AuxData            json.RawMessage `json:"executionContextAuxData,omitempty"`
}

// Location is a position inside a parsed script. Lines and columns are zero based.
type Location struct {
	ScriptID     string `json:"scriptId"`
	LineNumber   int    `json:"lineNumber"`
	ColumnNumber int    `json:"columnNumber,omitempty"`
}

// Scope is one entry of a call frame's scope chain.
type Scope struct {
	Type          string          `json:"type"`
	Object        json.RawMessage `json:"object"`
	Name          string          `json:"name,omitempty"`
	StartLocation *Location       `json:"startLocation,omitempty"`
	EndLocation   *Location       `json:"endLocation,omitempty"`
}

// CallFrame is one entry of the paused stack, innermost first.
type CallFrame struct {
	CallFrameID  string          `json:"callFrameId"`
	FunctionName string          `json:"functionName"`
	Location     Location        `json:"location"`
	URL          string          `json:"url,omitempty"`
	ScopeChain   []Scope         `json:"scopeChain,omitempty"`
	This         json.RawMessage `json:"this,omitempty"`
	ReturnValue  json.RawMessage `json:"returnValue,omitempty"`
}

type pausedParams struct {
	CallFrames     []CallFrame     `json:"callFrames"`
	Reason         string          `json:"reason"`
	Data           json.RawMessage `json:"data,omitempty"`
	HitBreakpoints []string        `json:"hitBreakpoints,omitempty"`
}

type contextCreatedParams struct {
	Context ExecutionContext `json:"context"`
}

type contextDestroyedParams struct {
	ExecutionContextID int `json:"executionContextId"`
}

// UnwrapResult returns raw unchanged unless it carries exceptionDetails,
// in which case the exception is returned as a *RemoteError. Results with
// extra fields (getProperties' internalProperties) pass through intact.
func UnwrapResult(raw json.RawMessage) (json.RawMessage, error) {
	var probe struct {
		ExceptionDetails *ExceptionDetails `json:"exceptionDetails"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	if probe.ExceptionDetails != nil {
		return nil, &RemoteError{Payload: raw, Exception: probe.ExceptionDetails}
	}
	return raw, nil
}
