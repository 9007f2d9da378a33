// Package preview renders remote value handles as plain data for a
// presentation layer. It only uses the handle's public surface, so reference
// values are always rendered through the debuggee.
package preview

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shehryarbajwa/devtools-inspector/internal/devtools"
	"github.com/shehryarbajwa/devtools-inspector/internal/locate"
	"github.com/shehryarbajwa/devtools-inspector/internal/remote"
)

// Row is one line of an expanded object.
type Row struct {
	Name     string `json:"name"`
	Internal bool   `json:"internal,omitempty"`
	Summary  string `json:"summary"`
	Text     string `json:"text"`
	Type     string `json:"type"`
	ObjectID string `json:"objectId,omitempty"`
}

// Summary is the short label of a handle: class name, else subtype, else type.
func Summary(obj *remote.Object) string {
	if obj.ClassName() != "" {
		return obj.ClassName()
	}
	if obj.Subtype() != "" {
		return obj.Subtype()
	}
	return obj.Type()
}

// Text renders a handle as a single line. Objects and functions render as
// their summary; primitives are converted by the debuggee's own rules.
func Text(ctx context.Context, obj *remote.Object, lookup locate.Lookup) (string, error) {
	text, err := text(ctx, obj, lookup)
	var repErr *remote.RepresentationError
	if errors.As(err, &repErr) || errors.Is(err, devtools.ErrUnknownScript) {
		return Summary(obj), nil
	}
	return text, err
}

func text(ctx context.Context, obj *remote.Object, lookup locate.Lookup) (string, error) {
	switch obj.Type() {
	case "object":
		switch obj.Subtype() {
		case "null":
			return "null", nil
		case "internal#location":
			loc, err := locate.FromObject(lookup, obj)
			if err != nil {
				return "", err
			}
			return loc.URL, nil
		}
		return Summary(obj), nil
	case "function":
		return Summary(obj), nil
	case "number":
		f, err := obj.ToRemoteFloat(ctx)
		if err != nil {
			return "", err
		}
		return stringOf(ctx, f)
	case "boolean":
		return stringOf(ctx, obj)
	case "string":
		s, err := stringOf(ctx, obj)
		if err != nil {
			return "", err
		}
		return quote(s)
	case "undefined":
		return "undefined", nil
	case "symbol", "bigint":
		return obj.Description(), nil
	default:
		return "", fmt.Errorf("unknown value type %q", obj.Type())
	}
}

func stringOf(ctx context.Context, obj *remote.Object) (string, error) {
	res, err := obj.ToRemoteString(ctx)
	if err != nil {
		return "", err
	}
	v, err := res.Value()
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("string coercion returned %s", res.Type())
	}
	return s, nil
}

func quote(s string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", err
	}
	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// Rows expands a reference handle into own rows followed by internal rows.
// Data properties are labelled by name, accessors as "get name" and
// "set name"; undefined accessors are skipped.
func Rows(ctx context.Context, obj *remote.Object, lookup locate.Lookup) ([]Row, error) {
	props, err := obj.GetProperties(ctx)
	if err != nil {
		return nil, err
	}
	return RowsOf(ctx, props, lookup)
}

// RowsOf renders properties already fetched with GetProperties.
func RowsOf(ctx context.Context, props *remote.Properties, lookup locate.Lookup) ([]Row, error) {
	var err error
	rows := make([]Row, 0, len(props.Result)+len(props.InternalProperties))
	for _, p := range props.Result {
		if rows, err = appendRows(ctx, rows, p, false, lookup); err != nil {
			return nil, err
		}
	}
	for _, p := range props.InternalProperties {
		if rows, err = appendRows(ctx, rows, p, true, lookup); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func appendRows(ctx context.Context, rows []Row, p remote.PropertyDescriptor, internal bool, lookup locate.Lookup) ([]Row, error) {
	name := p.Name
	if p.Symbol != nil {
		name = p.Symbol.Description()
	}

	if p.Value != nil {
		row, err := newRow(ctx, name, p.Value, internal, lookup)
		if err != nil {
			return rows, err
		}
		return append(rows, row), nil
	}

	for _, acc := range []struct {
		prefix string
		fn     *remote.Object
	}{
		{"get ", p.Get},
		{"set ", p.Set},
	} {
		if acc.fn == nil || acc.fn.Type() == "undefined" {
			continue
		}
		row, err := newRow(ctx, acc.prefix+name, acc.fn, internal, lookup)
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func newRow(ctx context.Context, name string, obj *remote.Object, internal bool, lookup locate.Lookup) (Row, error) {
	text, err := Text(ctx, obj, lookup)
	if err != nil {
		return Row{}, err
	}
	return Row{
		Name:     name,
		Internal: internal,
		Summary:  Summary(obj),
		Text:     text,
		Type:     obj.Type(),
		ObjectID: obj.ObjectID(),
	}, nil
}
