package stage

import (
	"context"

	"github.com/vk/stagegrid/internal/argument"
	"github.com/vk/stagegrid/internal/pattern"
	"github.com/vk/stagegrid/internal/scope"
	"github.com/vk/stagegrid/internal/storage"
)

// Base carries the state every stage shares. Embed it in concrete stages and
// override Run.
type Base struct {
	def    *Definition
	specs  []*argument.Argument
	values map[string]any
	unused []string
}

func (b *Base) Definition() *Definition { return b.def }

// Arguments returns a deep copy of the materialized values.
func (b *Base) Arguments() map[string]any {
	out := make(map[string]any, len(b.values))
	for k, v := range b.values {
		out[k] = pattern.Clone(v)
	}
	return out
}

// Specs returns this instance's copies of the declared arguments.
func (b *Base) Specs() []*argument.Argument { return b.specs }

// Unused lists keyword names that matched no declared argument.
func (b *Base) Unused() []string { return b.unused }

// Run does nothing.
func (b *Base) Run(context.Context, *scope.Scope, storage.Storage) error { return nil }

// Value returns the named argument and whether it is set.
func (b *Base) Value(name string) (any, bool) {
	v, ok := b.values[name]
	return pattern.Clone(v), ok
}

// Text returns the named argument as a string, or "" when unset or of
// another type.
func (b *Base) Text(name string) string {
	s, _ := b.values[name].(string)
	return s
}

func (b *Base) Int(name string) int {
	switch v := b.values[name].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func (b *Base) Float(name string) float64 {
	switch v := b.values[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func (b *Base) Bool(name string) bool {
	v, _ := b.values[name].(bool)
	return v
}

// Texts returns a list argument as strings, skipping other element types.
func (b *Base) Texts(name string) []string {
	items, _ := b.values[name].([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
