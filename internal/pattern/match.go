package pattern

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Match coerces value into the shape described by p.
//
// Text values under a Literal pattern are parsed with ParseLiteral. Bool
// patterns fail with a *BoolParseError; every other failure is a
// *CoercionError.
func Match(p Pattern, value any) (any, error) {
	switch p := p.(type) {
	case literalPattern:
		s, ok := value.(string)
		if !ok {
			return value, nil
		}
		out, err := ParseLiteral(s)
		if err != nil {
			return nil, &CoercionError{Pattern: p, Value: value, Err: err}
		}
		return out, nil
	case boolPattern:
		return ParseBool(value)
	case Func:
		out, err := p.Fn(value)
		if err != nil {
			return nil, &CoercionError{Pattern: p, Value: value, Err: err}
		}
		return out, nil
	case Equal:
		if EqualValues(p.Value, value) {
			return value, nil
		}
		return nil, &CoercionError{Pattern: p, Value: value}
	case List:
		return matchList(p, value)
	case Tuple:
		return matchTuple(p, value)
	case Dict:
		return matchDict(p, value)
	}
	return nil, &CoercionError{Pattern: p, Value: value}
}

func matchList(p List, value any) (any, error) {
	items, ok := sequence(value)
	if !ok {
		return nil, &CoercionError{Pattern: p, Value: value, Err: errors.New("value is not a sequence")}
	}
	if len(p) == 0 {
		return items, nil
	}
	if len(p) > 1 {
		return nil, &CoercionError{Pattern: p, Value: value, Err: errors.New("list patterns must be homogeneous")}
	}
	out := make([]any, len(items))
	for i, item := range items {
		v, err := Match(p[0], item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func matchTuple(p Tuple, value any) (any, error) {
	items, ok := sequence(value)
	if !ok {
		return nil, &CoercionError{Pattern: p, Value: value, Err: errors.New("value is not a sequence")}
	}
	if len(p) == 0 {
		return items, nil
	}
	if len(items) != len(p) {
		return nil, &CoercionError{
			Pattern: p,
			Value:   value,
			Err:     fmt.Errorf("expected %d elements, got %d", len(p), len(items)),
		}
	}
	out := make([]any, len(items))
	for i, item := range items {
		v, err := Match(p[i], item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func matchDict(p Dict, value any) (any, error) {
	entries, ok := mapping(value)
	if !ok {
		return nil, &CoercionError{Pattern: p, Value: value, Err: errors.New("value is not a mapping")}
	}
	if len(p) == 0 {
		return entries, nil
	}
	if len(p) > 1 {
		return nil, &CoercionError{Pattern: p, Value: value, Err: errors.New("dict patterns must have a single entry")}
	}
	out := make(map[any]any, len(entries))
	for k, v := range entries {
		key, err := Match(p[0].Key, k)
		if err != nil {
			return nil, fmt.Errorf("key %v: %w", k, err)
		}
		if key != nil && !reflect.TypeOf(key).Comparable() {
			return nil, &CoercionError{Pattern: p, Value: value, Err: fmt.Errorf("key %v coerced to unhashable %T", k, key)}
		}
		val, err := Match(p[0].Value, v)
		if err != nil {
			return nil, fmt.Errorf("value for key %v: %w", k, err)
		}
		out[key] = val
	}
	return out, nil
}

// sequence copies any slice or array into a fresh []any.
func sequence(value any) ([]any, bool) {
	if items, ok := value.([]any); ok {
		return append([]any(nil), items...), true
	}
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// mapping copies any Go map into a fresh map[any]any.
func mapping(value any) (map[any]any, bool) {
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || rv.Kind() != reflect.Map {
		return nil, false
	}
	out := make(map[any]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().Interface()] = iter.Value().Interface()
	}
	return out, true
}

// ParseBool reads integer-like values by truthiness and "true"/"false" text
// case-insensitively.
func ParseBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n != 0, nil
		}
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return false, &BoolParseError{Value: value}
	}
	n, err := toInt(value)
	if err != nil {
		return false, &BoolParseError{Value: value}
	}
	return n.(int) != 0, nil
}

func toInt(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int8:
		return int(v), nil
	case int16:
		return int(v), nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint:
		return int(v), nil
	case uint8:
		return int(v), nil
	case uint16:
		return int(v), nil
	case uint32:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float32:
		return floatToInt(float64(v))
	case float64:
		return floatToInt(v)
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n), nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, err
		}
		return floatToInt(f)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("invalid integer literal %q", v)
		}
		return n, nil
	}
	return nil, fmt.Errorf("cannot convert %T to int", value)
}

func floatToInt(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("cannot convert %v to int", f)
	}
	return int(f), nil
}

func toFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float literal %q", v)
		}
		return f, nil
	case json.Number:
		return v.Float64()
	}
	n, err := toInt(value)
	if err != nil {
		return nil, fmt.Errorf("cannot convert %T to float", value)
	}
	return float64(n.(int)), nil
}

func toString(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case nil:
		return "", errors.New("cannot convert nil to str")
	}
	return fmt.Sprint(value), nil
}

// EqualValues compares numbers by value and everything else structurally.
func EqualValues(a, b any) bool {
	fa, okA := asFloat(a)
	fb, okB := asFloat(b)
	if okA && okB {
		return fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		f, err := toFloat(v)
		if err != nil {
			return 0, false
		}
		return f.(float64), true
	}
	return 0, false
}
