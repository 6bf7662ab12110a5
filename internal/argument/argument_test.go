package argument

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/stagegrid/internal/cmdline"
	"github.com/vk/stagegrid/internal/pattern"
)

func TestNew_Rejects(t *testing.T) {
	testCases := []struct {
		name string
		arg  Argument
	}{
		{name: "empty name", arg: Argument{}},
		{name: "dash in name", arg: Argument{Name: "max-count"}},
		{name: "leading digit", arg: Argument{Name: "1x"}},
		{name: "long abbreviation", arg: Argument{Name: "x", Abbreviation: "-xy"}},
		{name: "uppercase abbreviation", arg: Argument{Name: "x", Abbreviation: "-X"}},
		{name: "multi-element list", arg: Argument{Name: "x", Type: pattern.List{pattern.Int, pattern.Float}}},
		{name: "untyped command-line list", arg: Argument{Name: "x", Type: pattern.List{}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.arg)
			assert.Error(t, err)
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	a := MustNew(Argument{Name: "max_count"})
	assert.Equal(t, "--max-count", a.FlagName())
	assert.Equal(t, "any", a.Type.String())
	assert.Equal(t, "any", a.CmdType.String())

	b := MustNew(Argument{Name: "x", Type: pattern.Int, CmdType: pattern.String})
	assert.Equal(t, "int", b.Type.String())
	assert.Equal(t, "str", b.CmdType.String())
}

func TestClone_CopiesDefault(t *testing.T) {
	a := MustNew(Argument{Name: "xs", Type: pattern.List{pattern.Int}, Default: []any{1, 2}})
	c := a.Clone()
	c.Default.([]any)[0] = 100
	assert.Equal(t, []any{1, 2}, a.Default)
}

func TestValidate_Bool(t *testing.T) {
	a := MustNew(Argument{Name: "flag", Type: pattern.Bool})

	for _, v := range []any{"0", 0, false, "false", "FaLse"} {
		got, err := a.Validate(v)
		require.NoError(t, err, "%#v", v)
		assert.Equal(t, false, got, "%#v", v)
	}
	for _, v := range []any{"-1", "1", 1, true, "true"} {
		got, err := a.Validate(v)
		require.NoError(t, err, "%#v", v)
		assert.Equal(t, true, got, "%#v", v)
	}

	_, err := a.Validate("x")
	var boolErr *pattern.BoolParseError
	assert.True(t, errors.As(err, &boolErr))
}

func TestValidate_ValidValues(t *testing.T) {
	a := MustNew(Argument{Name: "mode", Type: pattern.String, ValidValues: OneOf("fast", "slow")})

	got, err := a.Validate("fast")
	require.NoError(t, err)
	assert.Equal(t, "fast", got)

	_, err = a.Validate("medium")
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, []string{"mode"}, vErr.Names)
	assert.Equal(t, "medium", vErr.Value)
	assert.ErrorContains(t, err, `"fast", "slow"`)
}

func TestValidate_ValidValuesWithUncomparableMembers(t *testing.T) {
	a := MustNew(Argument{Name: "shape", ValidValues: OneOf([]any{1, 2}, map[string]any{"k": "v"}, 3)})

	testCases := []struct {
		name  string
		value any
		ok    bool
	}{
		{name: "equal list", value: []any{1, 2}, ok: true},
		{name: "equal mapping", value: map[string]any{"k": "v"}, ok: true},
		{name: "number by value", value: 3.0, ok: true},
		{name: "other list", value: []any{2, 1}},
		{name: "list against number", value: []any{3}},
		{name: "other mapping", value: map[string]any{"k": "w"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := a.Validate(tc.value)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			assert.True(t, errors.As(err, &vErr), "got %v", err)
		})
	}
}

func TestRange(t *testing.T) {
	testCases := []struct {
		name  string
		r     Range
		value any
		want  bool
	}{
		{name: "inside", r: Range{Min: 0, Max: 1}, value: 0.5, want: true},
		{name: "exclusive left edge", r: Range{Min: 0, Max: 1}, value: 0, want: false},
		{name: "inclusive left edge", r: Range{Min: 0, Max: 1, Inclusive: [2]bool{true, false}}, value: 0, want: true},
		{name: "exclusive right edge", r: Range{Min: 0, Max: 1, Inclusive: [2]bool{true, false}}, value: 1.0, want: false},
		{name: "inclusive right edge", r: Range{Min: 0, Max: 1, Inclusive: [2]bool{false, true}}, value: 1, want: true},
		{name: "above with inclusive left", r: Range{Min: 0, Max: 1, Inclusive: [2]bool{true, true}}, value: 5, want: false},
		{name: "not a number", r: Range{Min: 0, Max: 1}, value: "0.5", want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.r.Contains(tc.value))
		})
	}

	assert.Equal(t, "[0, 1)", Range{Min: 0, Max: 1, Inclusive: [2]bool{true, false}}.String())
}

func parseWith(t *testing.T, args []string, tokens ...string) map[string]any {
	t.Helper()
	p := cmdline.New("test", "", nil)
	for _, a := range args {
		require.NoError(t, MustNew(Argument{Name: a}).RegisterParser(p))
	}
	vals, err := p.Parse(tokens)
	require.NoError(t, err)
	return vals
}

func TestRegisterParser(t *testing.T) {
	args := []*Argument{
		MustNew(Argument{Name: "float", Type: pattern.Float}),
		MustNew(Argument{Name: "boolean", Abbreviation: "-b", Type: pattern.Bool}),
		MustNew(Argument{Name: "int_list", Type: pattern.List{pattern.Int}}),
		MustNew(Argument{Name: "complex_list", Type: pattern.List{pattern.Tuple{pattern.Int, pattern.Float}}}),
		MustNew(Argument{Name: "pair", Type: pattern.Tuple{pattern.String, pattern.Int}}),
		MustNew(Argument{Name: "ragged", Type: pattern.Tuple{pattern.String, pattern.List{pattern.Int}}}),
		MustNew(Argument{Name: "mapping", Type: pattern.Dict{{Key: pattern.String, Value: pattern.Int}}}),
	}
	p := cmdline.New("test", "", nil)
	for _, a := range args {
		require.NoError(t, a.RegisterParser(p))
	}

	raw, err := p.Parse([]string{
		"--float", "13",
		"-b", "FaLse",
		"--int-list", "1", "2", "3",
		"--complex-list", "1", "2",
		"--complex-list", "3", "4",
		"--pair", "a", "7",
		"--ragged", "x", "y", "z",
		"--mapping", "{'a': 1}",
	})
	require.NoError(t, err)

	got := make(map[string]any)
	for _, a := range args {
		v, ok := raw[a.Name]
		require.True(t, ok, a.Name)
		got[a.Name], err = a.ValidateCmd(v)
		if a.Name == "ragged" {
			// The ragged tuple takes every token; coercion reports the arity.
			require.Error(t, err)
			continue
		}
		require.NoError(t, err, a.Name)
	}
	delete(got, "ragged")

	want := map[string]any{
		"float":        13.0,
		"boolean":      false,
		"int_list":     []any{1, 2, 3},
		"complex_list": []any{[]any{1, 2.0}, []any{3, 4.0}},
		"pair":         []any{"a", 7},
		"mapping":      map[any]any{"a": 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parsed arguments mismatch (-want +got):\n%s", diff)
	}
}

func TestRegisterParser_ScalarConvertsAtParseTime(t *testing.T) {
	p := cmdline.New("test", "", nil)
	require.NoError(t, MustNew(Argument{Name: "n", Type: pattern.Int}).RegisterParser(p))

	_, err := p.Parse([]string{"--n", "abc"})
	var cmdErr *cmdline.Error
	require.True(t, errors.As(err, &cmdErr))
	var coerceErr *pattern.CoercionError
	assert.True(t, errors.As(err, &coerceErr))
}

func TestRegisterParser_RequiredAndHelp(t *testing.T) {
	p := cmdline.New("test", "", nil)
	a := MustNew(Argument{Name: "path", Required: true, Help: "long help", CmdHelp: "short help", Metavar: "FILE"})
	require.NoError(t, a.RegisterParser(p))

	assert.Contains(t, p.Usage(), "--path FILE")
	assert.NotContains(t, p.Usage(), "[--path FILE]")
	assert.Contains(t, p.Help(), "short help")
	assert.NotContains(t, p.Help(), "long help")

	_, err := p.Parse(nil)
	assert.ErrorContains(t, err, "--path")
}

func TestValidateCmd_Override(t *testing.T) {
	a := MustNew(Argument{
		Name:    "size",
		Type:    pattern.Tuple{pattern.Int, pattern.Int},
		CmdType: pattern.String,
		CmdValidate: func(a *Argument, value any) (any, error) {
			return a.Validate([]any{value, value})
		},
	})
	p := cmdline.New("test", "", nil)
	require.NoError(t, a.RegisterParser(p))
	vals, err := p.Parse([]string{"--size", "4"})
	require.NoError(t, err)

	got, err := a.ValidateCmd(vals["size"])
	require.NoError(t, err)
	assert.Equal(t, []any{4, 4}, got)
}

func TestParseWith_AnyTypeKeepsText(t *testing.T) {
	vals := parseWith(t, []string{"name"}, "--name", "value")
	assert.Equal(t, "value", vals["name"])
}
