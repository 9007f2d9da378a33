package remote

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shehryarbajwa/devtools-inspector/internal/devtools"
)

func names(props []PropertyDescriptor) []string {
	var out []string
	for _, p := range props {
		out = append(out, p.Name)
	}
	return out
}

func sameNames(got []PropertyDescriptor, want ...string) bool {
	n := names(got)
	if len(n) != len(want) {
		return false
	}
	for i := range n {
		if n[i] != want[i] {
			return false
		}
	}
	return true
}

func TestGetPropertiesRequest(t *testing.T) {
	conn := newFakeRequester()
	conn.reply(devtools.MethodRuntimeGetProperties, `{"result":[]}`)

	obj := FromJSON(conn, Descriptor{Type: "object", ObjectID: "obj-1"})
	props, err := obj.GetProperties(context.Background())
	if err != nil {
		t.Fatalf("GetProperties failed: %v", err)
	}
	if props.InternalProperties == nil || len(props.InternalProperties) != 0 {
		t.Errorf("expected empty internal properties, got %v", props.InternalProperties)
	}

	reqs := conn.recorded()
	if len(reqs) != 1 || string(reqs[0].Params) != `{"objectId":"obj-1","ownProperties":true}` {
		t.Errorf("unexpected request: %+v", reqs)
	}
}

func TestGetPropertiesArrayLength(t *testing.T) {
	conn := newFakeRequester()
	conn.reply(devtools.MethodRuntimeGetProperties, `{
		"result": [
			{"name":"0","value":{"type":"number","value":1},"writable":true,"enumerable":true,"isOwn":true},
			{"name":"1","value":{"type":"number","value":2},"writable":true,"enumerable":true,"isOwn":true},
			{"name":"length","value":{"type":"number","value":2},"writable":true,"isOwn":true}
		]
	}`)

	arr := FromJSON(conn, Descriptor{Type: "object", Subtype: "array", ObjectID: "arr-1"})
	props, err := arr.GetProperties(context.Background())
	if err != nil {
		t.Fatalf("GetProperties failed: %v", err)
	}

	if !sameNames(props.Result, "0", "1") {
		t.Errorf("unexpected result names %v", names(props.Result))
	}
	if !sameNames(props.InternalProperties, "length") {
		t.Fatalf("unexpected internal names %v", names(props.InternalProperties))
	}
	length, err := props.InternalProperties[0].Value.Value()
	if err != nil || length != float64(2) {
		t.Errorf("expected length 2, got %v (%v)", length, err)
	}

	first, _ := props.Result[0].Value.Value()
	if first != float64(1) {
		t.Errorf("expected element 1, got %v", first)
	}
	if props.Result[0].Value.Conn() != Requester(conn) {
		t.Error("expected wrapped value to share the connection")
	}
}

func TestGetPropertiesLengthOnPlainObjectStays(t *testing.T) {
	conn := newFakeRequester()
	conn.reply(devtools.MethodRuntimeGetProperties, `{
		"result": [{"name":"length","value":{"type":"number","value":7}}]
	}`)

	obj := FromJSON(conn, Descriptor{Type: "object", ObjectID: "obj-1"})
	props, err := obj.GetProperties(context.Background())
	if err != nil {
		t.Fatalf("GetProperties failed: %v", err)
	}
	if !sameNames(props.Result, "length") || len(props.InternalProperties) != 0 {
		t.Errorf("unexpected split %v / %v", names(props.Result), names(props.InternalProperties))
	}
}

func TestGetPropertiesDuplicateProto(t *testing.T) {
	conn := newFakeRequester()
	conn.reply(devtools.MethodRuntimeGetProperties, `{
		"result": [
			{"name":"__proto__","value":{"type":"number","value":1},"writable":true,"enumerable":true,"isOwn":true},
			{"name":"a","value":{"type":"string","value":"x"},"isOwn":true},
			{"name":"__proto__","value":{"type":"object","className":"Object","objectId":"proto-1"},"isOwn":true}
		],
		"internalProperties": [
			{"name":"[[Prototype]]","value":{"type":"object","objectId":"proto-1"}}
		]
	}`)

	obj := FromJSON(conn, Descriptor{Type: "object", ObjectID: "obj-1"})
	props, err := obj.GetProperties(context.Background())
	if err != nil {
		t.Fatalf("GetProperties failed: %v", err)
	}

	if !sameNames(props.Result, "__proto__", "a") {
		t.Fatalf("unexpected result names %v", names(props.Result))
	}
	own, _ := props.Result[0].Value.Value()
	if own != float64(1) {
		t.Errorf("expected the first __proto__ to stay as a data property, got %v", own)
	}

	if !sameNames(props.InternalProperties, "[[Prototype]]", "__proto__") {
		t.Fatalf("unexpected internal names %v", names(props.InternalProperties))
	}
	link := props.InternalProperties[1]
	if link.Value == nil || link.Value.ObjectID() != "proto-1" {
		t.Errorf("expected prototype link proto-1, got %+v", link)
	}
}

func TestGetPropertiesProtoAccessor(t *testing.T) {
	conn := newFakeRequester()
	conn.reply(devtools.MethodRuntimeGetProperties, `{
		"result": [
			{"name":"__proto__","get":{"type":"function","objectId":"get-1"},"set":{"type":"function","objectId":"set-1"},"configurable":true}
		]
	}`)

	obj := FromJSON(conn, Descriptor{Type: "object", ObjectID: "obj-1"})
	props, err := obj.GetProperties(context.Background())
	if err != nil {
		t.Fatalf("GetProperties failed: %v", err)
	}
	if len(props.Result) != 0 || len(props.InternalProperties) != 1 {
		t.Fatalf("unexpected split %v / %v", names(props.Result), names(props.InternalProperties))
	}
	link := props.InternalProperties[0]
	if !link.IsAccessor() || link.Get.ObjectID() != "get-1" || link.Set.ObjectID() != "set-1" {
		t.Errorf("expected accessor prototype link, got %+v", link)
	}
}

func TestGetPropertiesSymbolKey(t *testing.T) {
	conn := newFakeRequester()
	conn.reply(devtools.MethodRuntimeGetProperties, `{
		"result": [
			{"symbol":{"type":"symbol","description":"Symbol(tag)","objectId":"sym-1"},"value":{"type":"boolean","value":true}}
		]
	}`)

	obj := FromJSON(conn, Descriptor{Type: "object", ObjectID: "obj-1"})
	props, err := obj.GetProperties(context.Background())
	if err != nil {
		t.Fatalf("GetProperties failed: %v", err)
	}
	if len(props.Result) != 1 || props.Result[0].Symbol == nil || props.Result[0].Symbol.Description() != "Symbol(tag)" {
		t.Errorf("expected symbol-keyed property, got %+v", props.Result)
	}
}

func TestGetPropertiesRejectsLiteralsAndSymbols(t *testing.T) {
	conn := newFakeRequester()
	literal, _ := FromValue(conn, "x")
	symbol := FromJSON(conn, Descriptor{Type: "symbol", ObjectID: "sym-1"})

	for _, obj := range []*Object{literal, symbol} {
		_, err := obj.GetProperties(context.Background())
		var repErr *RepresentationError
		if !errors.As(err, &repErr) {
			t.Errorf("expected RepresentationError for %s, got %v", obj.Type(), err)
		}
	}
	if len(conn.recorded()) != 0 {
		t.Error("expected no requests")
	}
}

func TestGetPropertiesMarshal(t *testing.T) {
	conn := newFakeRequester()
	conn.reply(devtools.MethodRuntimeGetProperties, `{"result":[{"name":"a","value":{"type":"number","value":1},"enumerable":true}]}`)

	obj := FromJSON(conn, Descriptor{Type: "object", ObjectID: "obj-1"})
	props, err := obj.GetProperties(context.Background())
	if err != nil {
		t.Fatalf("GetProperties failed: %v", err)
	}
	data, err := json.Marshal(props)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	want := `{"result":[{"name":"a","value":{"type":"number","value":1},"enumerable":true}],"internalProperties":[]}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}
