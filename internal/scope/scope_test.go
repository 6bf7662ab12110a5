package scope

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetCall_ResolvesOnce(t *testing.T) {
	s := New(nil)
	calls := 0
	s.SetCall("x", func() (any, error) {
		calls++
		return 42, nil
	})

	assert.True(t, s.Has("x"))
	assert.True(t, s.Pending("x"))
	assert.Equal(t, 0, calls)

	v, err := s.Get("x")
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)

	v, err = s.GetOr("x", 0)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)

	assert.True(t, s.Has("x"))
	assert.False(t, s.Pending("x"))
	assert.Equal(t, map[string]any{"x": 42}, s.Snapshot())
}

func TestSetCall_FailureConsumesProducer(t *testing.T) {
	s := New(nil)
	boom := errors.New("boom")
	calls := 0
	s.SetCall("x", func() (any, error) {
		calls++
		return nil, boom
	})

	_, err := s.Get("x")
	require.ErrorIs(t, err, boom)
	assert.False(t, s.Has("x"))

	_, err = s.Get("x")
	require.ErrorIs(t, err, ErrMissing)
	assert.Equal(t, 1, calls)
}

func TestSet_ReplacesPending(t *testing.T) {
	s := New(map[string]any{"a": 1})
	s.SetCall("a", func() (any, error) { return 2, nil })
	assert.Empty(t, s.Snapshot())

	s.Set("a", 3)
	v, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestGetOr_Missing(t *testing.T) {
	s := New(nil)
	v, err := s.GetOr("nope", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", v)

	_, err = s.Get("nope")
	var keyErr *KeyError
	require.True(t, errors.As(err, &keyErr))
	assert.Equal(t, "nope", keyErr.Key)
}

func TestKeysAndDelete(t *testing.T) {
	s := New(map[string]any{"b": 1, "a": 2})
	s.SetCall("c", func() (any, error) { return nil, nil })
	assert.Equal(t, []string{"a", "b", "c"}, s.Keys())

	s.Delete("c")
	s.Delete("a")
	assert.Equal(t, []string{"b"}, s.Keys())
}

func TestNew_CopiesInitial(t *testing.T) {
	initial := map[string]any{"a": 1}
	s := New(initial)
	s.Set("a", 2)
	assert.Equal(t, 1, initial["a"])
}

func TestClone_IsIndependent(t *testing.T) {
	s := New(map[string]any{"xs": []any{1, 2}})
	c := s.Clone()
	c.Set("new", true)
	xs, err := As[[]any](c, "xs")
	require.NoError(t, err)
	xs[0] = 99

	assert.False(t, s.Has("new"))
	orig, err := As[[]any](s, "xs")
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2}, orig)
}

func TestAs_WrongType(t *testing.T) {
	s := New(map[string]any{"n": "text"})
	_, err := As[int](s, "n")
	assert.ErrorContains(t, err, "holds string, want int")
}
