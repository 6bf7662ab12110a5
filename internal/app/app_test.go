package app_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/stagegrid/internal/app"
	"github.com/vk/stagegrid/internal/registry"
	"github.com/vk/stagegrid/internal/stage"
	"github.com/vk/stagegrid/internal/testutil"
	"github.com/vk/stagegrid/internal/workflow"
)

func TestRun_Workflow(t *testing.T) {
	rec := &testutil.Recorder{}
	dir := t.TempDir()

	result := testutil.RunApp(t, app.Config{
		Command: app.CommandRun,
		Args:    []string{"--storage", dir, "Record", "--label", "a", "NoOp", "Record", "--label", "b"},
	}, rec, &testutil.NoOpModule{})

	require.NoError(t, result.Err)
	assert.Equal(t, []string{"a", "b"}, rec.Labels())
	testutil.AssertStageRan(t, result, 0, "Record")
	testutil.AssertStageRan(t, result, 1, "NoOp")
	testutil.AssertStageRan(t, result, 2, "Record")
}

func TestRun_StageFailureStopsWorkflow(t *testing.T) {
	rec := &testutil.Recorder{}
	result := testutil.RunApp(t, app.Config{
		Command: app.CommandRun,
		Args:    []string{"--storage", t.TempDir(), "Record", "--label", "a", "--fail", "true", "NoOp"},
	}, rec, &testutil.NoOpModule{})

	require.Error(t, result.Err)
	assert.ErrorIs(t, result.Err, testutil.ErrRecordFailed)
	assert.ErrorContains(t, result.Err, "workflow failed")
	testutil.AssertStageNotRan(t, result, 1, "NoOp")
}

func TestRun_DuplicateStagePanicsAtStartup(t *testing.T) {
	result := testutil.RunApp(t, app.Config{Command: app.CommandList},
		&testutil.NoOpModule{}, &testutil.NoOpModule{})
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "application startup panicked")
}

func TestRun_HelpIsNotAnError(t *testing.T) {
	result := testutil.RunApp(t, app.Config{Command: app.CommandRun, Args: []string{"--help"}}, &testutil.NoOpModule{})
	require.NoError(t, result.Err)
	assert.Contains(t, result.Output, "--module-names")
}

func TestList(t *testing.T) {
	rec := &testutil.Recorder{}
	extra := &testutil.SimpleModule{Defs: []*stage.Definition{
		{Name: "Documented", Description: "First line.\n\nMore detail."},
	}}

	result := testutil.RunApp(t, app.Config{Command: app.CommandList}, rec, extra)
	require.NoError(t, result.Err)
	assert.Contains(t, result.Output, "stagegrid_modules:")
	assert.Contains(t, result.Output, "Documented")
	assert.Contains(t, result.Output, "First line.")
	assert.NotContains(t, result.Output, "More detail.")

	result = testutil.RunApp(t, app.Config{Command: app.CommandList, Args: []string{"Record"}}, rec)
	require.NoError(t, result.Err)
	assert.Contains(t, result.Output, ":param label:")

	result = testutil.RunApp(t, app.Config{Command: app.CommandList, Args: []string{"Missing"}}, rec)
	assert.Error(t, result.Err)
}

func TestRegistries_ExtraRegistrySelectedByModuleNames(t *testing.T) {
	cfg, err := app.NewConfig(app.Config{
		Command:   app.CommandRun,
		LogLevel:  "debug",
		LogFormat: "text",
		Args:      []string{"--storage", t.TempDir(), "-m", "extra", "Record", "--label", "x"},
	})
	require.NoError(t, err)

	out := &testutil.SafeBuffer{}
	a := app.NewApp(out, cfg, &testutil.NoOpModule{})
	extra := registry.New("extra")
	rec := &testutil.Recorder{}
	rec.Register(extra)
	a.Registries().Add(extra)

	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, []string{"x"}, rec.Labels())
	assert.Equal(t, []string{"extra", registry.Default}, a.Registries().Names())
}

func TestFreeze(t *testing.T) {
	out := filepath.Join(t.TempDir(), "wf.yaml")
	result := testutil.RunApp(t, app.Config{
		Command: app.CommandFreeze,
		Output:  out,
		Args:    []string{"--storage", t.TempDir(), "-d", "n", "2", "NoOp"},
	}, &testutil.NoOpModule{})
	require.NoError(t, result.Err)

	doc, err := workflow.LoadDocument(out)
	require.NoError(t, err)
	require.Len(t, doc.Stages, 1)
	assert.Equal(t, "NoOp", doc.Stages[0].Type)
	assert.Equal(t, 2, doc.Scope["n"])

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "type: NoOp"))
}

func TestCoreModules(t *testing.T) {
	dir := t.TempDir()
	result := testutil.RunApp(t, app.Config{
		Command: app.CommandRun,
		Args:    []string{"--storage", dir, "-d", "answer", "42", "Save", "-k", "answer", "-f", "a.json", "Print", "-k", "answer"},
	})
	require.NoError(t, result.Err)
	assert.Contains(t, result.Output, "answer = 42")
	testutil.AssertStageRan(t, result, 0, "Save")
	testutil.AssertStageRan(t, result, 1, "Print")

	data, err := os.ReadFile(filepath.Join(dir, "a.json"))
	require.NoError(t, err)
	assert.Equal(t, "42", string(data))
}

func TestNewConfig(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     app.Config
		wantErr string
	}{
		{name: "run", cfg: app.Config{Command: app.CommandRun}},
		{name: "freeze without output", cfg: app.Config{Command: app.CommandFreeze}, wantErr: "freeze requires an output path"},
		{name: "empty", cfg: app.Config{}, wantErr: "Command is a required"},
		{name: "unknown", cfg: app.Config{Command: "explode"}, wantErr: `unknown command "explode"`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := app.NewConfig(tc.cfg)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}
