package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/shehryarbajwa/devtools-inspector/internal/devtools"
	"github.com/shehryarbajwa/devtools-inspector/internal/preview"
	"github.com/shehryarbajwa/devtools-inspector/internal/remote"
)

// CoerceKind selects a primitive conversion.
type CoerceKind string

const (
	CoerceFloat   CoerceKind = "float"
	CoerceInteger CoerceKind = "integer"
	CoerceString  CoerceKind = "string"
)

// Inspector is the live debugging surface of one session: its connection,
// event hub and the remote objects it has handed out.
type Inspector struct {
	sessionID string
	conn      *devtools.Conn
	hub       *Hub

	mu      sync.RWMutex
	objects map[string]remote.Descriptor
}

func newInspector(sessionID string) *Inspector {
	return &Inspector{
		sessionID: sessionID,
		hub:       NewHub(sessionID),
		objects:   make(map[string]remote.Descriptor),
	}
}

// attach dials targetURL and brings the debuggee up.
func (i *Inspector) attach(ctx context.Context, targetURL string, debug bool) error {
	conn, err := devtools.Open(ctx, targetURL, devtools.Options{
		OnEvent: i.handleEvent,
		Debug:   debug,
	})
	if err != nil {
		return err
	}
	i.conn = conn

	if err := conn.StandardInit(ctx); err != nil {
		conn.Close()
		return fmt.Errorf("failed to initialize debuggee: %w", err)
	}
	return nil
}

// handleEvent runs on the receive goroutine.
func (i *Inspector) handleEvent(method string, params json.RawMessage) {
	switch devtools.KindOf(method) {
	case devtools.EventPaused:
		var p struct {
			CallFrames []devtools.CallFrame `json:"callFrames"`
		}
		if err := json.Unmarshal(params, &p); err == nil {
			for _, frame := range p.CallFrames {
				i.rememberRaw(frame.This)
				i.rememberRaw(frame.ReturnValue)
				for _, scope := range frame.ScopeChain {
					i.rememberRaw(scope.Object)
				}
			}
		}
	case devtools.EventExecutionContextsCleared:
		i.mu.Lock()
		i.objects = make(map[string]remote.Descriptor)
		i.mu.Unlock()
	}

	i.hub.Publish(method, params)
}

func (i *Inspector) rememberRaw(raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	var desc remote.Descriptor
	if err := json.Unmarshal(raw, &desc); err != nil || desc.ObjectID == "" {
		return
	}
	i.mu.Lock()
	i.objects[desc.ObjectID] = desc
	i.mu.Unlock()
}

func (i *Inspector) remember(objs ...*remote.Object) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, obj := range objs {
		if obj != nil && obj.ObjectID() != "" {
			i.objects[obj.ObjectID()] = obj.Descriptor()
		}
	}
}

// SessionID returns the owning session's id.
func (i *Inspector) SessionID() string { return i.sessionID }

// ObjectGroup is the release group tagging every evaluation result.
func (i *Inspector) ObjectGroup() string { return i.sessionID }

// Conn returns the session's connection.
func (i *Inspector) Conn() *devtools.Conn { return i.conn }

// Hub returns the session's event hub.
func (i *Inspector) Hub() *Hub { return i.hub }

// Request forwards to the connection.
func (i *Inspector) Request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	return i.conn.Request(ctx, method, params)
}

// SubscribeFunc forwards to the hub.
func (i *Inspector) SubscribeFunc(fn func(devtools.Event)) func() {
	return i.hub.SubscribeFunc(fn)
}

// Evaluate runs expression in the debuggee, in contextID when non-zero.
func (i *Inspector) Evaluate(ctx context.Context, expression string, contextID int) (*remote.Object, error) {
	obj, err := remote.Evaluate(ctx, i.conn, expression, remote.EvaluateOptions{
		ContextID:   contextID,
		ObjectGroup: i.ObjectGroup(),
	})
	if err != nil {
		return nil, err
	}
	i.remember(obj)
	return obj, nil
}

// Object returns a handle to a remembered remote object.
func (i *Inspector) Object(objectID string) (*remote.Object, error) {
	i.mu.RLock()
	desc, ok := i.objects[objectID]
	i.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, objectID)
	}
	return remote.FromJSON(i.conn, desc), nil
}

// Properties fetches the normalized properties of a remembered object and
// remembers every handle they reference.
func (i *Inspector) Properties(ctx context.Context, objectID string) (*remote.Properties, error) {
	obj, err := i.Object(objectID)
	if err != nil {
		return nil, err
	}
	props, err := obj.GetProperties(ctx)
	if err != nil {
		return nil, err
	}

	for _, list := range [][]remote.PropertyDescriptor{props.Result, props.InternalProperties} {
		for _, p := range list {
			i.remember(p.Symbol, p.Value, p.Get, p.Set)
		}
	}
	return props, nil
}

// Rows renders a remembered object's properties for display.
func (i *Inspector) Rows(ctx context.Context, objectID string) ([]preview.Row, error) {
	props, err := i.Properties(ctx, objectID)
	if err != nil {
		return nil, err
	}
	return preview.RowsOf(ctx, props, i.conn)
}

// Coerce converts a remembered object to a primitive.
func (i *Inspector) Coerce(ctx context.Context, objectID string, kind CoerceKind) (*remote.Object, error) {
	obj, err := i.Object(objectID)
	if err != nil {
		return nil, err
	}

	var res *remote.Object
	switch kind {
	case CoerceFloat:
		res, err = obj.ToRemoteFloat(ctx)
	case CoerceInteger:
		res, err = obj.ToRemoteInteger(ctx)
	case CoerceString:
		res, err = obj.ToRemoteString(ctx)
	default:
		return nil, fmt.Errorf("%w: unknown coercion %q", ErrInvalidRequest, kind)
	}
	if err != nil {
		return nil, err
	}
	i.remember(res)
	return res, nil
}

// Release drops a remembered object on both sides.
func (i *Inspector) Release(ctx context.Context, objectID string) error {
	obj, err := i.Object(objectID)
	if err != nil {
		return err
	}

	i.mu.Lock()
	delete(i.objects, objectID)
	i.mu.Unlock()

	return obj.Release(ctx)
}

// Pause asks the debuggee to suspend.
func (i *Inspector) Pause(ctx context.Context) error {
	_, err := i.conn.Request(ctx, devtools.MethodDebuggerPause, nil)
	return err
}

// Resume continues a paused debuggee.
func (i *Inspector) Resume(ctx context.Context) error {
	return i.step(ctx, devtools.MethodDebuggerResume)
}

// StepOver runs to the next statement in the current function.
func (i *Inspector) StepOver(ctx context.Context) error {
	return i.step(ctx, devtools.MethodDebuggerStepOver)
}

// StepInto steps into the next call.
func (i *Inspector) StepInto(ctx context.Context) error {
	return i.step(ctx, devtools.MethodDebuggerStepInto)
}

// StepOut runs until the current function returns.
func (i *Inspector) StepOut(ctx context.Context) error {
	return i.step(ctx, devtools.MethodDebuggerStepOut)
}

func (i *Inspector) step(ctx context.Context, method string) error {
	if !i.conn.IsPaused() {
		return devtools.ErrNotPaused
	}
	_, err := i.conn.Request(ctx, method, nil)
	return err
}

// close releases the session's object group and tears the connection down.
func (i *Inspector) close(ctx context.Context) {
	if i.conn != nil {
		if i.conn.Err() == nil {
			if err := remote.ReleaseGroup(ctx, i.conn, i.ObjectGroup()); err != nil {
				log.Printf("⚠️  Failed to release object group for session %s: %v", shortID(i.sessionID), err)
			}
		}
		i.conn.Close()
	}
	i.hub.Close()
}
