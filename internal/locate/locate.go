// Package locate resolves debuggee positions into source locations that a
// command layer can jump to.
package locate

import (
	"encoding/json"
	"fmt"

	"github.com/shehryarbajwa/devtools-inspector/internal/devtools"
	"github.com/shehryarbajwa/devtools-inspector/internal/remote"
)

// Lookup is the slice of connection state locations are resolved against.
// *devtools.Conn implements it.
type Lookup interface {
	ScriptByID(scriptID string) (devtools.Script, bool)
	CallFrames() []devtools.CallFrame
}

// SourceLocation is a resolved position. Line and column are zero based.
type SourceLocation struct {
	ScriptID     string `json:"scriptId"`
	URL          string `json:"url"`
	LineNumber   int    `json:"lineNumber"`
	ColumnNumber int    `json:"columnNumber"`
}

// Resolve maps a protocol location onto its parsed script.
func Resolve(lookup Lookup, loc devtools.Location) (SourceLocation, error) {
	script, ok := lookup.ScriptByID(loc.ScriptID)
	if !ok {
		return SourceLocation{}, fmt.Errorf("%w: %s", devtools.ErrUnknownScript, loc.ScriptID)
	}
	return SourceLocation{
		ScriptID:     script.ScriptID,
		URL:          script.URL,
		LineNumber:   loc.LineNumber,
		ColumnNumber: loc.ColumnNumber,
	}, nil
}

// FromFrame resolves the location of paused call frame i, innermost first.
func FromFrame(lookup Lookup, i int) (SourceLocation, error) {
	frames := lookup.CallFrames()
	if len(frames) == 0 {
		return SourceLocation{}, devtools.ErrNotPaused
	}
	if i < 0 || i >= len(frames) {
		return SourceLocation{}, fmt.Errorf("%w: %d of %d", devtools.ErrFrameOutOfRange, i, len(frames))
	}
	return Resolve(lookup, frames[i].Location)
}

// FromObject resolves a handle of subtype internal#location, as found among
// a function's internal properties.
func FromObject(lookup Lookup, obj *remote.Object) (SourceLocation, error) {
	if obj.Subtype() != "internal#location" {
		return SourceLocation{}, &remote.RepresentationError{Op: "resolve location", Type: obj.Subtype(), Reason: "not a location"}
	}
	desc := obj.Descriptor()
	if !desc.HasValue() {
		return SourceLocation{}, &remote.RepresentationError{Op: "resolve location", Type: obj.Subtype(), Reason: "missing value"}
	}

	var loc devtools.Location
	if err := json.Unmarshal(desc.Value, &loc); err != nil {
		return SourceLocation{}, fmt.Errorf("failed to decode location: %w", err)
	}
	return Resolve(lookup, loc)
}
