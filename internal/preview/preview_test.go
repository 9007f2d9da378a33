package preview

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/shehryarbajwa/devtools-inspector/internal/devtools"
	"github.com/shehryarbajwa/devtools-inspector/internal/remote"
)

type stubConn struct {
	results map[string]string
	methods []string
}

func (s *stubConn) Request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	s.methods = append(s.methods, method)
	if res, ok := s.results[method]; ok {
		return json.RawMessage(res), nil
	}
	return json.RawMessage(`{}`), nil
}

type stubLookup map[string]devtools.Script

func (s stubLookup) ScriptByID(id string) (devtools.Script, bool) {
	script, ok := s[id]
	return script, ok
}

func (s stubLookup) CallFrames() []devtools.CallFrame { return nil }

var scripts = stubLookup{"5": {ScriptID: "5", URL: "file:///app/main.js"}}

func literal(t *testing.T, v any) *remote.Object {
	t.Helper()
	obj, err := remote.FromValue(nil, v)
	if err != nil {
		t.Fatalf("FromValue(%v) failed: %v", v, err)
	}
	return obj
}

func TestSummary(t *testing.T) {
	tests := []struct {
		desc remote.Descriptor
		want string
	}{
		{remote.Descriptor{Type: "object", Subtype: "array", ClassName: "Array"}, "Array"},
		{remote.Descriptor{Type: "object", Subtype: "null"}, "null"},
		{remote.Descriptor{Type: "function"}, "function"},
	}

	for _, tt := range tests {
		if got := Summary(remote.FromJSON(nil, tt.desc)); got != tt.want {
			t.Errorf("Summary(%+v) = %q, want %q", tt.desc, got, tt.want)
		}
	}
}

func TestText(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		obj  *remote.Object
		want string
	}{
		{"null", literal(t, nil), "null"},
		{"undefined", literal(t, remote.Undefined), "undefined"},
		{"integer", literal(t, 42), "42"},
		{"float", literal(t, 1.5), "1.5"},
		{"nan", literal(t, math.NaN()), "NaN"},
		{"negative zero", literal(t, math.Copysign(0, -1)), "0"},
		{"infinity", literal(t, math.Inf(-1)), "-Infinity"},
		{"boolean", literal(t, true), "true"},
		{"string", literal(t, `say "hi" <b>`), `"say \"hi\" <b>"`},
		{"symbol", remote.FromJSON(nil, remote.Descriptor{Type: "symbol", Description: "Symbol(tag)", ObjectID: "sym-1"}), "Symbol(tag)"},
		{"bigint", remote.FromJSON(nil, remote.Descriptor{Type: "bigint", UnserializableValue: "12n", Description: "12n"}), "12n"},
		{"object", remote.FromJSON(nil, remote.Descriptor{Type: "object", ClassName: "Map", Subtype: "map", ObjectID: "m-1"}), "Map"},
		{"function", remote.FromJSON(nil, remote.Descriptor{Type: "function", ClassName: "Function", ObjectID: "f-1"}), "Function"},
		{"location", remote.FromJSON(nil, remote.Descriptor{
			Type:    "object",
			Subtype: "internal#location",
			Value:   json.RawMessage(`{"scriptId":"5","lineNumber":1}`),
		}), "file:///app/main.js"},
		{"location of unknown script", remote.FromJSON(nil, remote.Descriptor{
			Type:    "object",
			Subtype: "internal#location",
			Value:   json.RawMessage(`{"scriptId":"404","lineNumber":1}`),
		}), "internal#location"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Text(ctx, tt.obj, scripts)
			if err != nil {
				t.Fatalf("Text failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTextOfRemoteString(t *testing.T) {
	conn := &stubConn{results: map[string]string{
		devtools.MethodRuntimeCallFunctionOn: `{"result":{"type":"string","value":"boxed"}}`,
	}}
	obj := remote.FromJSON(conn, remote.Descriptor{Type: "string", ObjectID: "str-1"})

	got, err := Text(context.Background(), obj, scripts)
	if err != nil {
		t.Fatalf("Text failed: %v", err)
	}
	if got != `"boxed"` {
		t.Errorf("got %q", got)
	}
	if len(conn.methods) != 1 || conn.methods[0] != devtools.MethodRuntimeCallFunctionOn {
		t.Errorf("expected a single callFunctionOn, got %v", conn.methods)
	}
}

func TestRows(t *testing.T) {
	conn := &stubConn{results: map[string]string{
		devtools.MethodRuntimeGetProperties: `{
			"result": [
				{"name":"count","value":{"type":"number","value":3},"writable":true,"enumerable":true},
				{"name":"size","get":{"type":"function","className":"Function","objectId":"get-1"},"set":{"type":"undefined"}},
				{"symbol":{"type":"symbol","description":"Symbol(id)","objectId":"sym-1"},"value":{"type":"string","value":"x"}},
				{"name":"__proto__","value":{"type":"object","className":"Object","objectId":"proto-1"}}
			],
			"internalProperties": [
				{"name":"[[FunctionLocation]]","value":{"type":"object","subtype":"internal#location","value":{"scriptId":"5","lineNumber":0}}}
			]
		}`,
	}}
	obj := remote.FromJSON(conn, remote.Descriptor{Type: "object", ClassName: "Counter", ObjectID: "obj-1"})

	rows, err := Rows(context.Background(), obj, scripts)
	if err != nil {
		t.Fatalf("Rows failed: %v", err)
	}

	want := []Row{
		{Name: "count", Summary: "number", Text: "3", Type: "number"},
		{Name: "get size", Summary: "Function", Text: "Function", Type: "function", ObjectID: "get-1"},
		{Name: "Symbol(id)", Summary: "string", Text: `"x"`, Type: "string"},
		{Name: "[[FunctionLocation]]", Internal: true, Summary: "internal#location", Text: "file:///app/main.js", Type: "object"},
		{Name: "__proto__", Internal: true, Summary: "Object", Text: "Object", Type: "object", ObjectID: "proto-1"},
	}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %d: %+v", len(want), len(rows), rows)
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("row %d: got %+v, want %+v", i, rows[i], want[i])
		}
	}
}

func TestRowsOfLiteral(t *testing.T) {
	if _, err := Rows(context.Background(), literal(t, 1), scripts); err == nil {
		t.Error("expected an error expanding a literal")
	}
}
