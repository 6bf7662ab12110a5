package pattern

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClone_IsDeep(t *testing.T) {
	orig := map[string]any{"xs": []any{1, map[any]any{"k": []any{2}}}}
	cloned := Clone(orig).(map[string]any)

	cloned["xs"].([]any)[0] = 99
	cloned["xs"].([]any)[1].(map[any]any)["k"] = "changed"

	assert.Equal(t, 1, orig["xs"].([]any)[0])
	assert.Equal(t, []any{2}, orig["xs"].([]any)[1].(map[any]any)["k"])
}

func TestJSONValue(t *testing.T) {
	v := map[any]any{1: []any{map[any]any{"a": 2.5}}, "b": true}
	data, err := json.Marshal(JSONValue(v))
	require.NoError(t, err)
	assert.JSONEq(t, `{"1": [{"a": 2.5}], "b": true}`, string(data))
}

func TestNormalizeNumbers(t *testing.T) {
	v := map[string]any{"i": json.Number("3"), "f": json.Number("2.5"), "xs": []any{json.Number("-1"), "s"}}
	assert.Equal(t, map[string]any{"i": 3, "f": 2.5, "xs": []any{-1, "s"}}, NormalizeNumbers(v))
}
