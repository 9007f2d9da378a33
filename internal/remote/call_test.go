package remote

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/shehryarbajwa/devtools-inspector/internal/devtools"
)

func TestCallFunctionOn(t *testing.T) {
	conn := newFakeRequester()
	conn.reply(devtools.MethodRuntimeCallFunctionOn, `{"result":{"type":"number","value":8,"description":"8"}}`)

	obj := FromJSON(conn, Descriptor{Type: "object", ObjectID: "obj-1"})
	three, _ := FromValue(conn, 3)
	ref := FromJSON(conn, Descriptor{Type: "object", ObjectID: "obj-2"})

	res, err := obj.CallFunctionOn(context.Background(), "function (a, b) { return a + this.n; }", three, ref)
	if err != nil {
		t.Fatalf("CallFunctionOn failed: %v", err)
	}
	v, err := res.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	if v != float64(8) {
		t.Errorf("expected 8, got %v", v)
	}

	reqs := conn.recorded()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	var params struct {
		ObjectID            string            `json:"objectId"`
		FunctionDeclaration string            `json:"functionDeclaration"`
		Arguments           []json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(reqs[0].Params, &params); err != nil {
		t.Fatalf("failed to decode params: %v", err)
	}
	if params.ObjectID != "obj-1" {
		t.Errorf("expected objectId obj-1, got %q", params.ObjectID)
	}
	if len(params.Arguments) != 2 || string(params.Arguments[0]) != `{"value":3}` || string(params.Arguments[1]) != `{"objectId":"obj-2"}` {
		t.Errorf("unexpected arguments: %s", reqs[0].Params)
	}
}

func TestCallFunctionOnOmitsEmptyArguments(t *testing.T) {
	conn := newFakeRequester()
	conn.reply(devtools.MethodRuntimeCallFunctionOn, `{"result":{"type":"undefined"}}`)

	obj := FromJSON(conn, Descriptor{Type: "object", ObjectID: "obj-1"})
	if _, err := obj.CallFunctionOn(context.Background(), "function () {}"); err != nil {
		t.Fatalf("CallFunctionOn failed: %v", err)
	}

	var params map[string]any
	json.Unmarshal(conn.recorded()[0].Params, &params)
	if _, ok := params["arguments"]; ok {
		t.Errorf("expected arguments to be omitted, got %v", params)
	}
}

func TestCallFunctionOnLiteralFails(t *testing.T) {
	conn := newFakeRequester()
	obj, _ := FromValue(conn, "x")

	_, err := obj.CallFunctionOn(context.Background(), "function () {}")
	var repErr *RepresentationError
	if !errors.As(err, &repErr) {
		t.Fatalf("expected RepresentationError, got %v", err)
	}
	if len(conn.recorded()) != 0 {
		t.Error("expected no request for a literal receiver")
	}
}

func TestCallFunctionOnThrows(t *testing.T) {
	conn := newFakeRequester()
	conn.reply(devtools.MethodRuntimeCallFunctionOn, `{
		"result": {"type":"object","subtype":"error","objectId":"err-1"},
		"exceptionDetails": {"exceptionId":1,"text":"Uncaught","lineNumber":0,"columnNumber":12}
	}`)

	obj := FromJSON(conn, Descriptor{Type: "object", ObjectID: "obj-1"})
	_, err := obj.CallFunctionOn(context.Background(), "function () { throw new Error('boom'); }")

	var remoteErr *devtools.RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remoteErr.Exception == nil || remoteErr.Exception.Text != "Uncaught" {
		t.Errorf("unexpected exception details: %+v", remoteErr.Exception)
	}
}

func TestCallFunctionOnPropagatesRequestError(t *testing.T) {
	conn := newFakeRequester()
	wantErr := &devtools.RemoteError{Code: -32000, Message: "Could not find object with given id"}
	conn.handlers[devtools.MethodRuntimeCallFunctionOn] = func(json.RawMessage) (json.RawMessage, error) {
		return nil, wantErr
	}

	obj := FromJSON(conn, Descriptor{Type: "object", ObjectID: "gone"})
	_, err := obj.CallFunctionOn(context.Background(), "function () {}")
	if !errors.Is(err, wantErr) {
		t.Errorf("expected %v, got %v", wantErr, err)
	}
}

func TestLocalCoercions(t *testing.T) {
	conn := newFakeRequester()
	ctx := context.Background()

	literal := func(v any) *Object {
		obj, err := FromValue(conn, v)
		if err != nil {
			t.Fatalf("FromValue(%v) failed: %v", v, err)
		}
		return obj
	}

	tests := []struct {
		name   string
		coerce func(*Object) (*Object, error)
		in     any
		want   string
	}{
		{"float of numeric string", func(o *Object) (*Object, error) { return o.ToRemoteFloat(ctx) }, "42", `{"type":"number","value":42}`},
		{"float of text", func(o *Object) (*Object, error) { return o.ToRemoteFloat(ctx) }, "abc", `{"type":"number","unserializableValue":"NaN"}`},
		{"float of true", func(o *Object) (*Object, error) { return o.ToRemoteFloat(ctx) }, true, `{"type":"number","value":1}`},
		{"float of null", func(o *Object) (*Object, error) { return o.ToRemoteFloat(ctx) }, nil, `{"type":"number","value":0}`},
		{"float of undefined", func(o *Object) (*Object, error) { return o.ToRemoteFloat(ctx) }, Undefined, `{"type":"number","unserializableValue":"NaN"}`},
		{"integer truncates", func(o *Object) (*Object, error) { return o.ToRemoteInteger(ctx) }, 3.7, `{"type":"number","value":3}`},
		{"integer of infinity", func(o *Object) (*Object, error) { return o.ToRemoteInteger(ctx) }, math.Inf(1), `{"type":"number","value":0}`},
		{"string of true", func(o *Object) (*Object, error) { return o.ToRemoteString(ctx) }, true, `{"type":"string","value":"true"}`},
		{"string of null", func(o *Object) (*Object, error) { return o.ToRemoteString(ctx) }, nil, `{"type":"string","value":"null"}`},
		{"string of undefined", func(o *Object) (*Object, error) { return o.ToRemoteString(ctx) }, Undefined, `{"type":"string","value":"undefined"}`},
		{"string of number", func(o *Object) (*Object, error) { return o.ToRemoteString(ctx) }, 1.5, `{"type":"string","value":"1.5"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.coerce(literal(tt.in))
			if err != nil {
				t.Fatalf("coercion failed: %v", err)
			}
			data, _ := json.Marshal(res)
			if string(data) != tt.want {
				t.Errorf("got %s, want %s", data, tt.want)
			}
		})
	}

	if len(conn.recorded()) != 0 {
		t.Errorf("expected literal coercions to stay local, got %d requests", len(conn.recorded()))
	}
}

func TestRemoteCoercionsUseCallFunctionOn(t *testing.T) {
	conn := newFakeRequester()
	conn.reply(devtools.MethodRuntimeCallFunctionOn, `{"result":{"type":"string","value":"[object Object]"}}`)
	ctx := context.Background()

	obj := FromJSON(conn, Descriptor{Type: "object", ObjectID: "obj-1"})
	if _, err := obj.ToRemoteFloat(ctx); err != nil {
		t.Fatalf("ToRemoteFloat failed: %v", err)
	}
	if _, err := obj.ToRemoteInteger(ctx); err != nil {
		t.Fatalf("ToRemoteInteger failed: %v", err)
	}
	res, err := obj.ToRemoteString(ctx)
	if err != nil {
		t.Fatalf("ToRemoteString failed: %v", err)
	}
	if v, _ := res.Value(); v != "[object Object]" {
		t.Errorf("unexpected string result %v", v)
	}

	want := []string{floatFunction, integerFunction, stringFunction}
	reqs := conn.recorded()
	if len(reqs) != len(want) {
		t.Fatalf("expected %d requests, got %d", len(want), len(reqs))
	}
	for i, req := range reqs {
		var params callFunctionOnParams
		json.Unmarshal(req.Params, &params)
		if params.FunctionDeclaration != want[i] || params.ObjectID != "obj-1" {
			t.Errorf("request %d: got %s", i, req.Params)
		}
	}
}

func TestReleaseLiteralIsNoop(t *testing.T) {
	conn := newFakeRequester()
	obj, _ := FromValue(conn, 1)

	if err := obj.Release(context.Background()); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if len(conn.recorded()) != 0 {
		t.Error("expected no request when releasing a literal")
	}
}

func TestReleaseReference(t *testing.T) {
	conn := newFakeRequester()
	obj := FromJSON(conn, Descriptor{Type: "object", ObjectID: "obj-9"})

	if err := obj.Release(context.Background()); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	reqs := conn.recorded()
	if len(reqs) != 1 || reqs[0].Method != devtools.MethodRuntimeReleaseObject || string(reqs[0].Params) != `{"objectId":"obj-9"}` {
		t.Errorf("unexpected requests: %+v", reqs)
	}
}

func TestReleaseGroup(t *testing.T) {
	conn := newFakeRequester()

	if err := ReleaseGroup(context.Background(), conn, "session-1"); err != nil {
		t.Fatalf("ReleaseGroup failed: %v", err)
	}
	reqs := conn.recorded()
	if len(reqs) != 1 || reqs[0].Method != devtools.MethodRuntimeReleaseObjectGroup || string(reqs[0].Params) != `{"objectGroup":"session-1"}` {
		t.Errorf("unexpected requests: %+v", reqs)
	}
}

func TestEvaluate(t *testing.T) {
	conn := newFakeRequester()
	conn.reply(devtools.MethodRuntimeEvaluate, `{"result":{"type":"object","className":"Array","subtype":"array","objectId":"arr-1","description":"Array(2)"}}`)

	obj, err := Evaluate(context.Background(), conn, "[1, 2]", EvaluateOptions{ContextID: 3, ObjectGroup: "s1"})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if obj.ObjectID() != "arr-1" || obj.Subtype() != "array" || obj.Conn() != Requester(conn) {
		t.Errorf("unexpected handle: %+v", obj.Descriptor())
	}

	var params map[string]any
	json.Unmarshal(conn.recorded()[0].Params, &params)
	if params["expression"] != "[1, 2]" || params["contextId"] != float64(3) || params["objectGroup"] != "s1" {
		t.Errorf("unexpected params: %v", params)
	}
	if _, ok := params["includeCommandLineAPI"]; ok {
		t.Error("expected includeCommandLineAPI to be omitted")
	}
}

func TestEvaluateThrows(t *testing.T) {
	conn := newFakeRequester()
	conn.reply(devtools.MethodRuntimeEvaluate, `{"result":{"type":"object"},"exceptionDetails":{"exceptionId":2,"text":"Uncaught ReferenceError: nope is not defined","lineNumber":0,"columnNumber":0}}`)

	_, err := Evaluate(context.Background(), conn, "nope", EvaluateOptions{})
	var remoteErr *devtools.RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
}
