package remote

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dop251/goja"

	"github.com/shehryarbajwa/devtools-inspector/internal/devtools"
)

type callFunctionOnParams struct {
	ObjectID            string         `json:"objectId"`
	FunctionDeclaration string         `json:"functionDeclaration"`
	Arguments           []CallArgument `json:"arguments,omitempty"`
}

type remoteObjectResult struct {
	Result Descriptor `json:"result"`
}

// CallFunctionOn invokes functionText remotely with this handle as the
// receiver. The debuggee's error, or an exception thrown by the function,
// is returned as *devtools.RemoteError.
func (o *Object) CallFunctionOn(ctx context.Context, functionText string, args ...*Object) (*Object, error) {
	if o.desc.ObjectID == "" {
		return nil, &RepresentationError{Op: "call function on", Type: o.desc.Type, Reason: "not a reference"}
	}

	params := callFunctionOnParams{
		ObjectID:            o.desc.ObjectID,
		FunctionDeclaration: functionText,
	}
	for i, arg := range args {
		callArg, err := arg.AsCallArgument()
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		params.Arguments = append(params.Arguments, callArg)
	}

	raw, err := o.conn.Request(ctx, devtools.MethodRuntimeCallFunctionOn, params)
	if err != nil {
		return nil, err
	}
	return o.wrapResult(raw)
}

func (o *Object) wrapResult(raw json.RawMessage) (*Object, error) {
	raw, err := devtools.UnwrapResult(raw)
	if err != nil {
		return nil, err
	}
	var res remoteObjectResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("failed to decode call result: %w", err)
	}
	return FromJSON(o.conn, res.Result), nil
}

// ToRemoteFloat performs +this.
func (o *Object) ToRemoteFloat(ctx context.Context) (*Object, error) {
	return o.coerce(ctx, floatFunction, coercer.float)
}

// ToRemoteInteger performs this|0.
func (o *Object) ToRemoteInteger(ctx context.Context) (*Object, error) {
	return o.coerce(ctx, integerFunction, coercer.integer)
}

// ToRemoteString performs template-string coercion.
func (o *Object) ToRemoteString(ctx context.Context) (*Object, error) {
	return o.coerce(ctx, stringFunction, coercer.str)
}

func (o *Object) coerce(ctx context.Context, remoteFn string, local goja.Callable) (*Object, error) {
	if o.desc.ObjectID != "" {
		return o.CallFunctionOn(ctx, remoteFn)
	}

	v, err := o.Value()
	if err != nil {
		return nil, err
	}
	res, err := coercer.apply(local, v)
	if err != nil {
		return nil, err
	}
	return FromValue(o.conn, res)
}

// Release drops the remote reference. Handles without an objectId are a no-op.
// Each call on a reference issues a request; call it at most once.
func (o *Object) Release(ctx context.Context) error {
	if o.desc.ObjectID == "" {
		return nil
	}
	_, err := o.conn.Request(ctx, devtools.MethodRuntimeReleaseObject, map[string]string{
		"objectId": o.desc.ObjectID,
	})
	return err
}

// ReleaseGroup drops every remote reference tagged with group on conn.
func ReleaseGroup(ctx context.Context, conn Requester, group string) error {
	_, err := conn.Request(ctx, devtools.MethodRuntimeReleaseObjectGroup, map[string]string{
		"objectGroup": group,
	})
	return err
}

// EvaluateOptions scopes a Runtime.evaluate call.
type EvaluateOptions struct {
	ContextID   int    `json:"contextId,omitempty"`
	ObjectGroup string `json:"objectGroup,omitempty"`
	// IncludeCommandLineAPI exposes console helpers such as $0 to the expression.
	IncludeCommandLineAPI bool `json:"includeCommandLineAPI,omitempty"`
}

type evaluateParams struct {
	Expression string `json:"expression"`
	EvaluateOptions
}

// Evaluate runs expression in the debuggee and returns a handle to the result.
func Evaluate(ctx context.Context, conn Requester, expression string, opts EvaluateOptions) (*Object, error) {
	raw, err := conn.Request(ctx, devtools.MethodRuntimeEvaluate, evaluateParams{
		Expression:      expression,
		EvaluateOptions: opts,
	})
	if err != nil {
		return nil, err
	}
	return (&Object{conn: conn}).wrapResult(raw)
}
