package pattern

import (
	"encoding/json"
	"fmt"
)

// Clone returns a deep copy of the containers of the value model. Leaf values
// are shared.
func Clone(v any) any {
	switch v := v.(type) {
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Clone(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = Clone(item)
		}
		return out
	case map[any]any:
		out := make(map[any]any, len(v))
		for k, item := range v {
			out[k] = Clone(item)
		}
		return out
	}
	return v
}

// JSONValue converts v into a form encoding/json can serialize: map[any]any
// becomes map[string]any with keys rendered by fmt.
func JSONValue(v any) any {
	switch v := v.(type) {
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = JSONValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = JSONValue(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[fmt.Sprint(k)] = JSONValue(item)
		}
		return out
	}
	return v
}

// NormalizeNumbers replaces json.Number values, as produced by a decoder
// with UseNumber, by int when integral and float64 otherwise. Containers are
// updated in place.
func NormalizeNumbers(v any) any {
	switch v := v.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
		f, _ := v.Float64()
		return f
	case []any:
		for i, item := range v {
			v[i] = NormalizeNumbers(item)
		}
		return v
	case map[string]any:
		for k, item := range v {
			v[k] = NormalizeNumbers(item)
		}
		return v
	}
	return v
}
