package pattern

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLiteral(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want any
	}{
		{name: "integer", in: "10", want: 10},
		{name: "negative integer", in: "-3", want: -3},
		{name: "float", in: "2.5", want: 2.5},
		{name: "double quoted", in: `"abc"`, want: "abc"},
		{name: "single quoted", in: `'abc'`, want: "abc"},
		{name: "single quoted with double quote", in: `'say "hi"'`, want: `say "hi"`},
		{name: "template sequence stays literal", in: `'${HOME}'`, want: "${HOME}"},
		{name: "booleans", in: "[true, False]", want: []any{true, false}},
		{name: "none", in: "None", want: nil},
		{name: "list", in: "[1, 2.5, 'x']", want: []any{1, 2.5, "x"}},
		{name: "tuple", in: "(1, 'a')", want: []any{1, "a"}},
		{name: "nested tuple in list", in: "[(1, 2), (3, 4)]", want: []any{[]any{1, 2}, []any{3, 4}}},
		{name: "colon mapping", in: `{"a": 1, 'b': [2]}`, want: map[string]any{"a": 1, "b": []any{2}}},
		{name: "equals mapping", in: `{a = "x"}`, want: map[string]any{"a": "x"}},
		{name: "surrounding whitespace", in: "  7  ", want: 7},
		{name: "whole float keeps its type", in: "1.0", want: 1.0},
		{name: "exponent is a float", in: "1e3", want: 1000.0},
		{name: "negative whole float", in: "-2.0", want: -2.0},
		{name: "floats in list", in: "[1, 1.0]", want: []any{1, 1.0}},
		{name: "integer keys", in: "{1: 'a', 2: 'b'}", want: map[any]any{1: "a", 2: "b"}},
		{name: "mixed keys", in: "{1: 'a', 'b': 2.0}", want: map[any]any{1: "a", "b": 2.0}},
		{name: "float key", in: "{0.5: 'half'}", want: map[any]any{0.5: "half"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseLiteral(tc.in)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("ParseLiteral(%q) mismatch (-want +got):\n%s", tc.in, diff)
			}
		})
	}
}

func TestParseLiteral_RejectsNonLiterals(t *testing.T) {
	for _, in := range []string{
		"",
		"hello",
		"os.path",
		`upper("x")`,
		"1 + 2",
		"[a, b]",
		`"unterminated`,
		"{a = b}",
		"{(1, 2): 'x'}",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseLiteral(in)
			assert.Error(t, err)
		})
	}
}
