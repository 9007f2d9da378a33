package remote

import "fmt"

// RepresentationError reports an operation the handle's shape cannot support.
type RepresentationError struct {
	Op     string
	Type   string
	Reason string
}

func (e *RepresentationError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("cannot %s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("cannot %s of %s: %s", e.Op, e.Type, e.Reason)
}
