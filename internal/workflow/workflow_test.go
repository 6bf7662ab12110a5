package workflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/stagegrid/internal/registry"
	"github.com/vk/stagegrid/internal/scope"
	"github.com/vk/stagegrid/internal/stage"
	"github.com/vk/stagegrid/internal/storage"
	"github.com/vk/stagegrid/internal/testutil"
	"github.com/vk/stagegrid/internal/workflow"
)

// fixture wires a Recorder into a registry set.
type fixture struct {
	rec  *testutil.Recorder
	set  *registry.Set
	st   storage.Storage
	root string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rec := &testutil.Recorder{}
	reg := registry.New(registry.Default)
	rec.Register(reg)
	(&testutil.NoOpModule{}).Register(reg)

	root := t.TempDir()
	st, err := storage.NewDirectory(root, "")
	require.NoError(t, err)
	return &fixture{rec: rec, set: registry.NewSet(reg), st: st, root: root}
}

func (f *fixture) stage(t *testing.T, label string, fail bool) stage.Stage {
	t.Helper()
	s, err := f.rec.Definition().New(context.Background(), map[string]any{"label": label, "fail": fail})
	require.NoError(t, err)
	return s
}

func TestRun_StagesSeeEarlierWrites(t *testing.T) {
	f := newFixture(t)
	wf, err := workflow.New([]stage.Stage{f.stage(t, "a", false), f.stage(t, "b", false)}, f.st, map[string]any{"seed": 1})
	require.NoError(t, err)

	sc, err := wf.Run(context.Background())
	require.NoError(t, err)

	records := f.rec.Records()
	require.Len(t, records, 2)
	assert.NotContains(t, records[0].Keys, "a")
	assert.Contains(t, records[1].Keys, "a")
	assert.Contains(t, records[0].Keys, "seed")
	assert.Contains(t, records[0].Keys, workflow.KeyWorkflow)
	assert.Contains(t, records[0].Keys, workflow.KeyExitStack)

	got, err := scope.As[*workflow.Workflow](sc, workflow.KeyWorkflow)
	require.NoError(t, err)
	assert.Same(t, wf, got)
	assert.True(t, sc.Has("b"))

	// The workflow's own scope is not modified by a run.
	_, ok := wf.Scope["a"]
	assert.False(t, ok)
}

func TestRun_FailureAbortsRemainingStages(t *testing.T) {
	f := newFixture(t)
	wf, err := workflow.New([]stage.Stage{
		f.stage(t, "a", false),
		f.stage(t, "b", true),
		f.stage(t, "c", false),
	}, f.st, nil)
	require.NoError(t, err)

	sc, err := wf.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, testutil.ErrRecordFailed)
	assert.ErrorContains(t, err, "stage 1 (Record)")
	assert.Equal(t, []string{"a", "b"}, f.rec.Labels())
	assert.True(t, sc.Has("a"))
	assert.False(t, sc.Has("c"))
}

func TestRun_ExitStackRunsInReverse(t *testing.T) {
	var order []string
	pushCleanups := &stage.Definition{
		Name: "PushCleanups",
		Build: func(b stage.Base) stage.Stage {
			return &runFunc{Base: b, fn: func(sc *scope.Scope) error {
				exits, err := scope.As[*workflow.ExitStack](sc, workflow.KeyExitStack)
				if err != nil {
					return err
				}
				exits.Push(func() error { order = append(order, "first"); return nil })
				exits.Push(func() error { order = append(order, "second"); return errors.New("cleanup failed") })
				return nil
			}}
		},
	}
	s, err := pushCleanups.New(context.Background(), nil)
	require.NoError(t, err)

	st, err := storage.NewDirectory(t.TempDir(), "")
	require.NoError(t, err)
	wf, err := workflow.New([]stage.Stage{s}, st, nil)
	require.NoError(t, err)
	_, err = wf.Run(context.Background())
	assert.ErrorContains(t, err, "cleanup failed")
	assert.Equal(t, []string{"second", "first"}, order)
}

func TestRun_CanceledContext(t *testing.T) {
	f := newFixture(t)
	wf, err := workflow.New([]stage.Stage{f.stage(t, "a", false)}, f.st, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = wf.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.rec.Records())
}

func TestNew_DefaultsToWorkingDirectoryStorage(t *testing.T) {
	t.Chdir(t.TempDir())
	wf, err := workflow.New(nil, nil, nil)
	require.NoError(t, err)
	want := map[string]any{"type": "DirectoryStorage", "root": ".", "group": nil}
	if diff := cmp.Diff(want, wf.Storage.Descriptor()); diff != "" {
		t.Errorf("descriptor mismatch (-want +got):\n%s", diff)
	}
}

type runFunc struct {
	stage.Base
	fn func(*scope.Scope) error
}

func (r *runFunc) Run(_ context.Context, sc *scope.Scope, _ storage.Storage) error {
	return r.fn(sc)
}
