package remote

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shehryarbajwa/devtools-inspector/internal/devtools"
)

const (
	protoProperty  = "__proto__"
	lengthProperty = "length"
)

// PropertyDescriptor is a property or internal slot with its handles wrapped.
// Name is empty for symbol-keyed properties, which carry Symbol instead.
type PropertyDescriptor struct {
	Name         string  `json:"name,omitempty"`
	Symbol       *Object `json:"symbol,omitempty"`
	Value        *Object `json:"value,omitempty"`
	Get          *Object `json:"get,omitempty"`
	Set          *Object `json:"set,omitempty"`
	Writable     bool    `json:"writable,omitempty"`
	Configurable bool    `json:"configurable,omitempty"`
	Enumerable   bool    `json:"enumerable,omitempty"`
	WasThrown    bool    `json:"wasThrown,omitempty"`
	IsOwn        bool    `json:"isOwn,omitempty"`
}

// IsAccessor reports whether the descriptor is a getter/setter pair.
func (p PropertyDescriptor) IsAccessor() bool {
	return p.Value == nil && (p.Get != nil || p.Set != nil)
}

// Properties is the normalized result of GetProperties.
type Properties struct {
	Result             []PropertyDescriptor `json:"result"`
	InternalProperties []PropertyDescriptor `json:"internalProperties"`
}

type rawProperty struct {
	Name         *string         `json:"name"`
	Symbol       json.RawMessage `json:"symbol"`
	Value        json.RawMessage `json:"value"`
	Get          json.RawMessage `json:"get"`
	Set          json.RawMessage `json:"set"`
	Writable     bool            `json:"writable"`
	Configurable bool            `json:"configurable"`
	Enumerable   bool            `json:"enumerable"`
	WasThrown    bool            `json:"wasThrown"`
	IsOwn        bool            `json:"isOwn"`
}

type rawProperties struct {
	Result             []rawProperty `json:"result"`
	InternalProperties []rawProperty `json:"internalProperties"`
}

// GetProperties fetches own properties and internal slots and normalizes
// them for presentation: every value/get/set is wrapped as a handle, an
// array's length moves to the internal list, and the last __proto__ entry
// moves there too as the prototype link.
func (o *Object) GetProperties(ctx context.Context) (*Properties, error) {
	if o.desc.ObjectID == "" {
		return nil, &RepresentationError{Op: "get properties", Type: o.desc.Type, Reason: "not a reference"}
	}
	if o.desc.Type == "symbol" {
		return nil, &RepresentationError{Op: "get properties", Type: "symbol", Reason: "cannot get properties of a Symbol"}
	}

	raw, err := o.conn.Request(ctx, devtools.MethodRuntimeGetProperties, map[string]any{
		"objectId":      o.desc.ObjectID,
		"ownProperties": true,
	})
	if err != nil {
		return nil, err
	}
	if raw, err = devtools.UnwrapResult(raw); err != nil {
		return nil, err
	}

	var rep rawProperties
	if err := json.Unmarshal(raw, &rep); err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}

	props := &Properties{
		Result:             make([]PropertyDescriptor, 0, len(rep.Result)),
		InternalProperties: make([]PropertyDescriptor, 0, len(rep.InternalProperties)+2),
	}
	for _, rp := range rep.InternalProperties {
		d, err := o.wrapProperty(rp)
		if err != nil {
			return nil, err
		}
		props.InternalProperties = append(props.InternalProperties, d)
	}

	for _, rp := range rep.Result {
		d, err := o.wrapProperty(rp)
		if err != nil {
			return nil, err
		}
		// length is a magic slot on arrays, not an ordinary own property.
		if o.desc.Subtype == "array" && rp.Name != nil && d.Name == lengthProperty {
			props.InternalProperties = append(props.InternalProperties, PropertyDescriptor{Name: lengthProperty, Value: d.Value})
			continue
		}
		props.Result = append(props.Result, d)
	}

	// A literal own property named __proto__ shows up next to the prototype
	// accessor. The last one in list order is the prototype link.
	proto := -1
	for i, d := range props.Result {
		if d.Symbol == nil && d.Name == protoProperty {
			proto = i
		}
	}
	if proto != -1 {
		link := props.Result[proto]
		props.Result = append(props.Result[:proto:proto], props.Result[proto+1:]...)
		if link.Value != nil {
			props.InternalProperties = append(props.InternalProperties, PropertyDescriptor{Name: protoProperty, Value: link.Value})
		} else {
			props.InternalProperties = append(props.InternalProperties, PropertyDescriptor{Name: protoProperty, Get: link.Get, Set: link.Set})
		}
	}

	return props, nil
}

func (o *Object) wrapProperty(rp rawProperty) (PropertyDescriptor, error) {
	d := PropertyDescriptor{
		Writable:     rp.Writable,
		Configurable: rp.Configurable,
		Enumerable:   rp.Enumerable,
		WasThrown:    rp.WasThrown,
		IsOwn:        rp.IsOwn,
	}
	if rp.Name != nil {
		d.Name = *rp.Name
	}

	var err error
	if d.Symbol, err = o.wrapOptional(rp.Symbol); err != nil {
		return d, err
	}
	if d.Value, err = o.wrapOptional(rp.Value); err != nil {
		return d, err
	}
	if d.Get, err = o.wrapOptional(rp.Get); err != nil {
		return d, err
	}
	if d.Set, err = o.wrapOptional(rp.Set); err != nil {
		return d, err
	}
	return d, nil
}

func (o *Object) wrapOptional(raw json.RawMessage) (*Object, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	return Decode(o.conn, raw)
}
