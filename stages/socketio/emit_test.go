package socketio

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/stagegrid/internal/registry"
	"github.com/vk/stagegrid/internal/scope"
)

func TestModule_RegistersEmit(t *testing.T) {
	r := registry.New(registry.Default)
	(&Module{}).Register(r)
	assert.Equal(t, []string{"Emit"}, r.Names())
}

func TestEmit_Payload(t *testing.T) {
	s, err := Emit.New(context.Background(), map[string]any{
		"url":   "http://localhost:3000/socket.io/",
		"event": "hello",
		"data":  map[string]any{"static": 1},
		"keys":  []any{"result"},
	})
	require.NoError(t, err)

	sc := scope.New(map[string]any{"result": map[any]any{"n": 2}})
	got, err := s.(*emit).payload(sc)
	require.NoError(t, err)
	want := map[string]any{"static": 1, "result": map[string]any{"n": 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}

	_, err = s.(*emit).payload(scope.New(nil))
	assert.ErrorIs(t, err, scope.ErrMissing)
}

func TestEmit_Failures(t *testing.T) {
	testCases := []struct {
		name    string
		url     string
		wantErr string
	}{
		{name: "url without host", url: "not a url", wantErr: "failed to parse URL"},
		{name: "unreachable server", url: "http://127.0.0.1:1/socket.io/", wantErr: ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := Emit.New(context.Background(), map[string]any{
				"url": tc.url, "event": "hello", "on_event": "reply", "timeout": 0.5,
			})
			require.NoError(t, err)

			sc := scope.New(nil)
			err = s.Run(context.Background(), sc, nil)
			require.Error(t, err)
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
			}
			assert.False(t, sc.Has("reply"))
		})
	}
}
