// Package remote models values living in a debuggee's heap as local handles.
//
// An Object wraps the protocol's RemoteObject descriptor together with the
// connection that produced it. Reference values (those carrying an objectId)
// are never copied locally: coercion, property enumeration and method calls
// go back over the connection, because remote conversion hooks such as
// valueOf or Symbol.toPrimitive can run arbitrary code.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
)

// Requester issues protocol requests. *devtools.Conn implements it.
type Requester interface {
	Request(ctx context.Context, method string, params any) (json.RawMessage, error)
}

// Descriptor is the protocol's RemoteObject.
type Descriptor struct {
	Type                string          `json:"type"`
	Subtype             string          `json:"subtype,omitempty"`
	ClassName           string          `json:"className,omitempty"`
	Value               json.RawMessage `json:"value,omitempty"`
	UnserializableValue string          `json:"unserializableValue,omitempty"`
	Description         string          `json:"description,omitempty"`
	ObjectID            string          `json:"objectId,omitempty"`
	Preview             json.RawMessage `json:"preview,omitempty"`
}

// HasValue reports whether the descriptor carries an inline value, null included.
func (d Descriptor) HasValue() bool {
	return len(d.Value) > 0
}

// Object is a handle to a possibly-remote value. It is immutable.
type Object struct {
	conn Requester
	desc Descriptor
}

// FromJSON wraps a descriptor received from the protocol as-is.
func FromJSON(conn Requester, desc Descriptor) *Object {
	return &Object{conn: conn, desc: desc}
}

// Decode wraps a raw RemoteObject payload.
func Decode(conn Requester, raw json.RawMessage) (*Object, error) {
	var desc Descriptor
	if err := json.Unmarshal(raw, &desc); err != nil {
		return nil, fmt.Errorf("failed to decode remote object: %w", err)
	}
	return FromJSON(conn, desc), nil
}

// Type returns the descriptor's type.
func (o *Object) Type() string { return o.desc.Type }

// Subtype returns the subtype, or "" when absent.
func (o *Object) Subtype() string { return o.desc.Subtype }

// ClassName returns the class name, or "" when absent.
func (o *Object) ClassName() string { return o.desc.ClassName }

// ObjectID returns the remote reference, or "" for values held inline.
func (o *Object) ObjectID() string { return o.desc.ObjectID }

// Description returns the debuggee's own string rendering, or "".
func (o *Object) Description() string { return o.desc.Description }

// Descriptor returns a copy of the wrapped descriptor.
func (o *Object) Descriptor() Descriptor { return o.desc }

// Conn returns the connection the handle issues requests on.
func (o *Object) Conn() Requester { return o.conn }

// MarshalJSON encodes the handle as its descriptor.
func (o *Object) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.desc)
}

func (o *Object) isUndefined() bool {
	return o.desc.Type == "undefined"
}

func (o *Object) isNull() bool {
	return o.desc.Type == "object" && o.desc.Subtype == "null"
}

// CallArgument is the wire shape of an argument to Runtime.callFunctionOn.
// The zero value stands for undefined.
type CallArgument struct {
	Value               json.RawMessage `json:"value,omitempty"`
	UnserializableValue string          `json:"unserializableValue,omitempty"`
	ObjectID            string          `json:"objectId,omitempty"`
}

// AsCallArgument converts the handle into a call argument.
func (o *Object) AsCallArgument() (CallArgument, error) {
	switch {
	case o.desc.ObjectID != "":
		return CallArgument{ObjectID: o.desc.ObjectID}, nil
	case o.isUndefined():
		return CallArgument{}, nil
	case o.desc.UnserializableValue != "":
		return CallArgument{UnserializableValue: o.desc.UnserializableValue}, nil
	case o.desc.HasValue():
		return CallArgument{Value: o.desc.Value}, nil
	default:
		return CallArgument{}, &RepresentationError{Op: "serialize call argument", Type: o.desc.Type, Reason: "unexpected value"}
	}
}
