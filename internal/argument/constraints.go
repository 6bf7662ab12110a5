package argument

import (
	"fmt"
	"strings"

	"github.com/vk/stagegrid/internal/pattern"
)

// Membership is a set of permitted values.
type Membership interface {
	Contains(value any) bool
	String() string
}

// ValidationError reports arguments that are missing or hold a value outside
// their permitted set.
type ValidationError struct {
	// Stage is filled in by stage construction when known.
	Stage   string
	Names   []string
	Value   any
	Allowed string
}

func (e *ValidationError) Error() string {
	prefix := ""
	if e.Stage != "" {
		prefix = e.Stage + ": "
	}
	if e.Allowed != "" {
		return fmt.Sprintf("%sargument %s: value %#v is not in %s", prefix, strings.Join(e.Names, ", "), e.Value, e.Allowed)
	}
	return fmt.Sprintf("%smissing required arguments: %s", prefix, strings.Join(e.Names, ", "))
}

// OneOf permits exactly the listed values.
func OneOf(values ...any) Membership {
	return oneOf(values)
}

type oneOf []any

func (o oneOf) Contains(value any) bool {
	for _, v := range o {
		if pattern.EqualValues(v, value) {
			return true
		}
	}
	return false
}

func (o oneOf) String() string {
	parts := make([]string, len(o))
	for i, v := range o {
		parts[i] = fmt.Sprintf("%#v", v)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Range permits numbers between Min and Max. Inclusive controls the left and
// right endpoints respectively.
type Range struct {
	Min, Max  float64
	Inclusive [2]bool
}

func (r Range) Contains(value any) bool {
	x, ok := number(value)
	if !ok {
		return false
	}
	lower := x > r.Min || (r.Inclusive[0] && x == r.Min)
	upper := x < r.Max || (r.Inclusive[1] && x == r.Max)
	return lower && upper
}

func (r Range) String() string {
	left, right := "(", ")"
	if r.Inclusive[0] {
		left = "["
	}
	if r.Inclusive[1] {
		right = "]"
	}
	return fmt.Sprintf("%s%v, %v%s", left, r.Min, r.Max, right)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}
