package devtools

import (
	"encoding/json"
	"fmt"
)

// EventKind classifies the inbound events that update session state.
// Everything else is EventPassthrough.
type EventKind int

const (
	EventPassthrough EventKind = iota
	EventExecutionContextCreated
	EventExecutionContextDestroyed
	EventExecutionContextsCleared
	EventPaused
	EventResumed
	EventScriptParsed
)

// Event names with built-in state handling.
const (
	EventNameExecutionContextCreated   = "Runtime.executionContextCreated"
	EventNameExecutionContextDestroyed = "Runtime.executionContextDestroyed"
	EventNameExecutionContextsCleared  = "Runtime.executionContextsCleared"
	EventNamePaused                    = "Debugger.paused"
	EventNameResumed                   = "Debugger.resumed"
	EventNameScriptParsed              = "Debugger.scriptParsed"
	EventNameHeapSnapshotChunk         = "HeapProfiler.addHeapSnapshotChunk"
)

var eventKinds = map[string]EventKind{
	EventNameExecutionContextCreated:   EventExecutionContextCreated,
	EventNameExecutionContextDestroyed: EventExecutionContextDestroyed,
	EventNameExecutionContextsCleared:  EventExecutionContextsCleared,
	EventNamePaused:                    EventPaused,
	EventNameResumed:                   EventResumed,
	EventNameScriptParsed:              EventScriptParsed,
}

// KindOf maps an event method name to its kind.
func KindOf(method string) EventKind {
	return eventKinds[method]
}

func (k EventKind) String() string {
	for name, kind := range eventKinds {
		if kind == k {
			return name
		}
	}
	return "passthrough"
}

// stateUpdaters run with stateMu held for writing.
var stateUpdaters = map[EventKind]func(c *Conn, params json.RawMessage) error{
	EventExecutionContextCreated: func(c *Conn, params json.RawMessage) error {
		var p contextCreatedParams
		if err := json.Unmarshal(params, &p); err != nil {
			return err
		}
		c.executionContexts[p.Context.ID] = p.Context
		return nil
	},
	EventExecutionContextDestroyed: func(c *Conn, params json.RawMessage) error {
		var p contextDestroyedParams
		if err := json.Unmarshal(params, &p); err != nil {
			return err
		}
		delete(c.executionContexts, p.ExecutionContextID)
		return nil
	},
	EventExecutionContextsCleared: func(c *Conn, _ json.RawMessage) error {
		c.executionContexts = make(map[int]ExecutionContext)
		return nil
	},
	EventPaused: func(c *Conn, params json.RawMessage) error {
		var p pausedParams
		if err := json.Unmarshal(params, &p); err != nil {
			return err
		}
		c.callFrames = p.CallFrames
		c.pauseReason = p.Reason
		return nil
	},
	EventResumed: func(c *Conn, _ json.RawMessage) error {
		c.callFrames = nil
		c.pauseReason = ""
		return nil
	},
	EventScriptParsed: func(c *Conn, params json.RawMessage) error {
		var s Script
		if err := json.Unmarshal(params, &s); err != nil {
			return err
		}
		c.scripts[s.ScriptID] = s
		return nil
	},
}

// applyEvent updates the session caches for a known event kind.
func (c *Conn) applyEvent(method string, params json.RawMessage) error {
	update, ok := stateUpdaters[KindOf(method)]
	if !ok {
		return nil
	}

	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	if err := update(c, params); err != nil {
		return fmt.Errorf("malformed %s params: %w", method, err)
	}
	return nil
}
