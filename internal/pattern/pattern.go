package pattern

import (
	"errors"
	"fmt"
	"strings"
)

// Pattern is a recursive type descriptor. The set of implementations is
// closed; use Func to plug in custom coercions.
type Pattern interface {
	fmt.Stringer
	isPattern()
}

// Func is a named coercion callable. Any error returned by Fn is reported as a
// CoercionError by Match.
type Func struct {
	Name string
	Fn   func(any) (any, error)
}

func (f Func) String() string { return f.Name }
func (Func) isPattern()       {}

type boolPattern struct{}

func (boolPattern) String() string { return "bool" }
func (boolPattern) isPattern()     {}

type literalPattern struct{}

func (literalPattern) String() string { return "literal" }
func (literalPattern) isPattern()     {}

// Equal matches values equal to Value.
type Equal struct {
	Value any
}

func (e Equal) String() string { return fmt.Sprintf("%#v", e.Value) }
func (Equal) isPattern()       {}

// List is a homogeneous list pattern with zero or one element pattern.
type List []Pattern

func (l List) String() string { return "[" + join(l) + "]" }
func (List) isPattern()       {}

// Tuple is a fixed-length record pattern.
type Tuple []Pattern

func (t Tuple) String() string { return "(" + join(t) + ")" }
func (Tuple) isPattern()       {}

// Entry is the single key/value pair of a Dict pattern.
type Entry struct {
	Key   Pattern
	Value Pattern
}

// Dict is a mapping pattern with zero or one Entry.
type Dict []Entry

func (d Dict) String() string {
	parts := make([]string, len(d))
	for i, e := range d {
		parts[i] = fmt.Sprintf("%s: %s", e.Key, e.Value)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
func (Dict) isPattern() {}

var (
	// Any returns its input unchanged.
	Any Pattern = Func{Name: "any", Fn: func(v any) (any, error) { return v, nil }}
	// Int coerces numbers, numeric strings and booleans to int.
	Int Pattern = Func{Name: "int", Fn: toInt}
	// Float coerces numbers, numeric strings and booleans to float64.
	Float Pattern = Func{Name: "float", Fn: toFloat}
	// String renders any value as a string.
	String Pattern = Func{Name: "str", Fn: toString}
	// Bool parses booleans, integer-like values and "true"/"false".
	Bool Pattern = boolPattern{}
	// Literal parses text values with the safe literal grammar of
	// ParseLiteral and passes non-text values through.
	Literal Pattern = literalPattern{}
)

// IsScalar reports whether p is a leaf pattern (not a List, Tuple or Dict).
func IsScalar(p Pattern) bool {
	switch p.(type) {
	case List, Tuple, Dict:
		return false
	}
	return true
}

// Validate checks that p and all nested patterns have a legal shape.
func Validate(p Pattern) error {
	switch p := p.(type) {
	case nil:
		return &ShapeError{Reason: "missing pattern"}
	case Func:
		if p.Fn == nil {
			return &ShapeError{Pattern: p, Reason: "coercion function is nil"}
		}
	case List:
		if len(p) > 1 {
			return &ShapeError{Pattern: p, Reason: "only zero- or single-element homogeneous list patterns are supported"}
		}
		return validateAll(p)
	case Tuple:
		return validateAll(p)
	case Dict:
		if len(p) > 1 {
			return &ShapeError{Pattern: p, Reason: "only zero- or single-entry dict patterns are supported"}
		}
		var errs []error
		for _, e := range p {
			errs = append(errs, Validate(e.Key), Validate(e.Value))
		}
		return errors.Join(errs...)
	}
	return nil
}

func validateAll(ps []Pattern) error {
	var errs []error
	for _, p := range ps {
		errs = append(errs, Validate(p))
	}
	return errors.Join(errs...)
}

func join(ps []Pattern) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = fmt.Sprint(p)
	}
	return strings.Join(parts, ", ")
}
