package devtools

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"
)

// EventHandler receives every inbound event after the built-in state
// updates were applied. It runs on the receive goroutine and must not wait
// for a response, since responses are dispatched by that same goroutine.
type EventHandler func(method string, params json.RawMessage)

// Options configures a Conn.
type Options struct {
	// OnEvent is called for every event frame. May be nil.
	OnEvent EventHandler

	// Debug logs every frame sent and received.
	Debug bool
}

// Conn is a DevTools protocol session over a single channel.
type Conn struct {
	transport Transport
	onEvent   EventHandler
	debug     bool

	pendingMu sync.Mutex
	nextID    int64
	pending   map[int64]*Call

	// dispatchMu serializes dispatch steps; stateMu guards the caches below.
	dispatchMu        sync.Mutex
	stateMu           sync.RWMutex
	executionContexts map[int]ExecutionContext
	scripts           map[string]Script
	callFrames        []CallFrame
	pauseReason       string

	errMu     sync.RWMutex
	err       error
	done      chan struct{}
	closeOnce sync.Once
}

// Call is a request awaiting its response. It settles exactly once.
type Call struct {
	ID     int64
	Method string

	done   chan struct{}
	result json.RawMessage
	err    error
}

// Done is closed once the call settled.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the response arrives or ctx ends. Ending ctx only
// abandons the wait: the request stays outstanding on the wire and its
// response is absorbed when it arrives.
func (c *Call) Wait(ctx context.Context) (json.RawMessage, error) {
	select {
	case <-c.done:
		return c.result, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Open dials url and starts a session once the channel is ready.
func Open(ctx context.Context, url string, opts Options) (*Conn, error) {
	t, err := Dial(ctx, url)
	if err != nil {
		return nil, err
	}
	return NewConn(t, opts), nil
}

// NewConn starts a session over an open transport.
func NewConn(t Transport, opts Options) *Conn {
	c := &Conn{
		transport:         t,
		onEvent:           opts.OnEvent,
		debug:             opts.Debug,
		nextID:            1,
		pending:           make(map[int64]*Call),
		executionContexts: make(map[int]ExecutionContext),
		scripts:           make(map[string]Script),
		done:              make(chan struct{}),
	}
	go c.receiveLoop()
	return c
}

// Send issues a request without waiting for its response.
func (c *Conn) Send(method string, params any) (*Call, error) {
	// Ids are allocated and written under one lock so they reach the wire in order.
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	// fail records the error before draining pending, so nothing registered
	// after this check can be left unsettled.
	if err := c.Err(); err != nil {
		return nil, err
	}

	id := c.nextID
	data, err := json.Marshal(request{ID: id, Method: method, Params: params, Type: "request"})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", method, err)
	}
	c.nextID++

	call := &Call{ID: id, Method: method, done: make(chan struct{})}
	c.pending[id] = call

	if c.debug {
		log.Printf("⬆️  sent %s", data)
	}
	if err := c.transport.Send(data); err != nil {
		delete(c.pending, id)
		return nil, &TransportError{Op: "send", Err: err}
	}

	return call, nil
}

// Request issues a request and waits for its result.
func (c *Conn) Request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	call, err := c.Send(method, params)
	if err != nil {
		return nil, err
	}
	return call.Wait(ctx)
}

// Dispatch handles one inbound frame. A returned *ProtocolViolation means
// the session can no longer be trusted.
func (c *Conn) Dispatch(data []byte) error {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	if c.debug {
		log.Printf("⬇️  received %s", truncate(data, 1024))
	}

	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return &ProtocolViolation{Reason: fmt.Sprintf("undecodable frame: %v", err), Frame: data}
	}

	switch {
	case frame.Method != nil && frame.ID == nil:
		if err := c.applyEvent(*frame.Method, frame.Params); err != nil {
			return &ProtocolViolation{Reason: err.Error(), Frame: data}
		}
		if c.onEvent != nil {
			c.onEvent(*frame.Method, frame.Params)
		}
		return nil
	case frame.ID != nil && len(frame.Error) > 0:
		return c.settle(*frame.ID, nil, newRemoteError(frame.Error), data)
	case frame.ID != nil && len(frame.Result) > 0:
		return c.settle(*frame.ID, frame.Result, nil, data)
	default:
		return &ProtocolViolation{Reason: "unknown message format", Frame: data}
	}
}

func (c *Conn) settle(id int64, result json.RawMessage, err error, data []byte) error {
	c.pendingMu.Lock()
	call, ok := c.pending[id]
	delete(c.pending, id)
	c.pendingMu.Unlock()

	if !ok {
		return &ProtocolViolation{Reason: fmt.Sprintf("no pending request with id %d", id), Frame: data}
	}

	call.result = result
	call.err = err
	close(call.done)
	return nil
}

// receiveLoop feeds inbound frames to Dispatch until the channel fails.
func (c *Conn) receiveLoop() {
	for {
		data, err := c.transport.Receive()
		if err != nil {
			select {
			case <-c.done:
			default:
				log.Printf("❌ DevTools connection lost: %v", err)
			}
			c.fail(&TransportError{Op: "receive", Err: err})
			return
		}

		if err := c.Dispatch(data); err != nil {
			log.Printf("❌ %v", err)
			c.fail(err)
			c.transport.Close()
			return
		}
	}
}

// fail records the first terminal error and rejects every pending call with it.
func (c *Conn) fail(err error) {
	c.errMu.Lock()
	if c.err == nil {
		c.err = err
	}
	err = c.err
	c.errMu.Unlock()

	c.pendingMu.Lock()
	pending := c.pending
	c.pending = make(map[int64]*Call)
	c.pendingMu.Unlock()

	for _, call := range pending {
		call.err = err
		close(call.done)
	}

	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Err returns the error that ended the session, if any.
func (c *Conn) Err() error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()
	return c.err
}

// Done is closed when the session ends.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Close ends the session. Pending calls fail with ErrClosed.
func (c *Conn) Close() error {
	c.fail(&TransportError{Op: "close", Err: ErrClosed})
	return c.transport.Close()
}

// IsPaused reports whether the debuggee is suspended.
func (c *Conn) IsPaused() bool {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return len(c.callFrames) > 0
}

// PauseReason returns the reason of the current pause, or "".
func (c *Conn) PauseReason() string {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.pauseReason
}

// CallFrames returns a copy of the paused stack, innermost first.
func (c *Conn) CallFrames() []CallFrame {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return append([]CallFrame(nil), c.callFrames...)
}

// CurrentScript returns the script of the innermost call frame.
func (c *Conn) CurrentScript() (Script, error) {
	return c.Script(0)
}

// Script returns the script referenced by the call frame at frameIndex.
func (c *Conn) Script(frameIndex int) (Script, error) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.scriptAt(frameIndex)
}

func (c *Conn) scriptAt(frameIndex int) (Script, error) {
	if len(c.callFrames) == 0 {
		return Script{}, ErrNotPaused
	}
	if frameIndex < 0 || frameIndex >= len(c.callFrames) {
		return Script{}, fmt.Errorf("%w: %d of %d", ErrFrameOutOfRange, frameIndex, len(c.callFrames))
	}

	scriptID := c.callFrames[frameIndex].Location.ScriptID
	script, ok := c.scripts[scriptID]
	if !ok {
		return Script{}, fmt.Errorf("%w: %s", ErrUnknownScript, scriptID)
	}
	return script, nil
}

// ScriptByID returns parse metadata for a script id.
func (c *Conn) ScriptByID(scriptID string) (Script, bool) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	s, ok := c.scripts[scriptID]
	return s, ok
}

// Scripts returns every script parsed during the session.
func (c *Conn) Scripts() []Script {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	scripts := make([]Script, 0, len(c.scripts))
	for _, s := range c.scripts {
		scripts = append(scripts, s)
	}
	return scripts
}

// ExecutionContext resolves the context owning the script at frameIndex.
func (c *Conn) ExecutionContext(frameIndex int) (ExecutionContext, error) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	script, err := c.scriptAt(frameIndex)
	if err != nil {
		return ExecutionContext{}, err
	}
	ctx, ok := c.executionContexts[script.ExecutionContextID]
	if !ok {
		return ExecutionContext{}, fmt.Errorf("%w: %d", ErrUnknownContext, script.ExecutionContextID)
	}
	return ctx, nil
}

// ExecutionContexts returns the live execution contexts.
func (c *Conn) ExecutionContexts() []ExecutionContext {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	contexts := make([]ExecutionContext, 0, len(c.executionContexts))
	for _, ec := range c.executionContexts {
		contexts = append(contexts, ec)
	}
	return contexts
}

// StandardInit performs the bring-up sequence. The debuggee may block on
// attach until the domains are enabled, so the enable and pause requests
// go out first, then runIfWaitingForDebugger, then the batch is awaited.
func (c *Conn) StandardInit(ctx context.Context) error {
	batch := []string{
		MethodRuntimeEnable,
		MethodDebuggerEnable,
		MethodDebuggerPause,
		MethodHeapProfilerEnable,
	}

	calls := make([]*Call, 0, len(batch))
	for _, method := range batch {
		call, err := c.Send(method, nil)
		if err != nil {
			return err
		}
		calls = append(calls, call)
	}

	if _, err := c.Request(ctx, MethodRuntimeRunIfWaitingForDebugger, nil); err != nil {
		return fmt.Errorf("%s: %w", MethodRuntimeRunIfWaitingForDebugger, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, call := range calls {
		call := call
		g.Go(func() error {
			if _, err := call.Wait(gctx); err != nil {
				return fmt.Errorf("%s: %w", call.Method, err)
			}
			return nil
		})
	}
	return g.Wait()
}
