package pattern

import "fmt"

// CoercionError reports that no rule of a pattern could coerce a value, or
// that a rule's own coercion failed.
type CoercionError struct {
	Pattern Pattern
	Value   any
	Err     error
}

func (e *CoercionError) Error() string {
	msg := fmt.Sprintf("cannot match value %#v against pattern %v", e.Value, e.Pattern)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CoercionError) Unwrap() error { return e.Err }

// BoolParseError is returned when a value cannot be read as a boolean.
type BoolParseError struct {
	Value any
}

func (e *BoolParseError) Error() string {
	return fmt.Sprintf("cannot parse %#v as a boolean: expected an integer or \"true\"/\"false\"", e.Value)
}

// ShapeError reports an illegal pattern, detected before any matching.
type ShapeError struct {
	Pattern Pattern
	Reason  string
}

func (e *ShapeError) Error() string {
	if e.Pattern == nil {
		return "invalid pattern: " + e.Reason
	}
	return fmt.Sprintf("invalid pattern %v: %s", e.Pattern, e.Reason)
}
