package remote

import (
	"encoding/json"
	"fmt"
	"math"
)

type undefined struct{}

func (undefined) String() string { return "undefined" }

// Undefined is the local stand-in for the JavaScript undefined value.
// Value returns it for undefined handles and FromValue accepts it.
var Undefined = undefined{}

// Unserializable number tags.
const (
	TagInfinity         = "Infinity"
	TagNegativeInfinity = "-Infinity"
	TagNegativeZero     = "-0"
	TagNaN              = "NaN"
)

// Value reifies a primitive locally. JSON null and the null subtype give
// nil, undefined gives Undefined, numbers give float64 (tagged ones
// included). Reference values fail with *RepresentationError.
func (o *Object) Value() (any, error) {
	if o.isNull() {
		return nil, nil
	}
	if o.isUndefined() {
		return Undefined, nil
	}
	if o.desc.HasValue() {
		var v any
		if err := json.Unmarshal(o.desc.Value, &v); err != nil {
			return nil, fmt.Errorf("failed to decode inline value: %w", err)
		}
		return v, nil
	}
	if o.desc.UnserializableValue != "" {
		if f, ok := decodeTag(o.desc.UnserializableValue); ok {
			return f, nil
		}
	}
	return nil, &RepresentationError{Op: "reify value", Type: o.desc.Type, Reason: "was it a reference type?"}
}

func decodeTag(tag string) (float64, bool) {
	switch tag {
	case TagInfinity:
		return math.Inf(1), true
	case TagNegativeInfinity:
		return math.Inf(-1), true
	case TagNegativeZero:
		return math.Copysign(0, -1), true
	case TagNaN:
		return math.NaN(), true
	}
	return 0, false
}

func encodeTag(f float64) string {
	switch {
	case math.IsNaN(f):
		return TagNaN
	case math.IsInf(f, 1):
		return TagInfinity
	case math.IsInf(f, -1):
		return TagNegativeInfinity
	default:
		return TagNegativeZero
	}
}

// FromValue builds a literal handle from a local primitive: string, bool,
// any Go integer or float kind, nil for null, or Undefined. Reference types
// cannot be fabricated locally and fail with *RepresentationError.
func FromValue(conn Requester, v any) (*Object, error) {
	switch t := v.(type) {
	case nil:
		return FromJSON(conn, Descriptor{Type: "object", Subtype: "null", Value: json.RawMessage("null")}), nil
	case undefined:
		return FromJSON(conn, Descriptor{Type: "undefined"}), nil
	case string, bool:
		raw, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		return FromJSON(conn, Descriptor{Type: jsType(t), Value: raw}), nil
	case float64:
		return fromNumber(conn, t, t)
	case float32:
		return fromNumber(conn, float64(t), t)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fromNumber(conn, 0, t)
	default:
		return nil, &RepresentationError{Op: "create literal", Type: fmt.Sprintf("%T", v), Reason: "cannot create virtual reference types"}
	}
}

// fromNumber encodes f, or the integer n exactly when n is not a float.
func fromNumber(conn Requester, f float64, n any) (*Object, error) {
	switch n.(type) {
	case float64, float32:
		if math.IsNaN(f) || math.IsInf(f, 0) || (f == 0 && math.Signbit(f)) {
			return FromJSON(conn, Descriptor{Type: "number", UnserializableValue: encodeTag(f)}), nil
		}
	}
	raw, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("failed to encode number: %w", err)
	}
	return FromJSON(conn, Descriptor{Type: "number", Value: raw}), nil
}

func jsType(v any) string {
	if _, ok := v.(bool); ok {
		return "boolean"
	}
	return "string"
}
