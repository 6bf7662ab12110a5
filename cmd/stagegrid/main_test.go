package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/stagegrid/internal/cli"
)

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(out, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(out, []string{"--this-is-not-a-valid-flag"})

	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
	assert.Equal(t, 2, cli.AsExitError(err).Code)
}

func TestRun_List(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	require.NoError(t, run(out, []string{"list"}))
	for _, name := range []string{"Print", "Save", "Load", "Fetch", "EnvVars", "Emit"} {
		assert.Contains(t, out.String(), name)
	}
}

func TestRun_Workflow(t *testing.T) {
	dir := t.TempDir()
	out := &bytes.Buffer{}

	err := run(out, []string{"--log-level", "error", "run",
		"--storage", dir,
		"-d", "greeting", "'hi'",
		"Save", "-k", "greeting", "-f", "greeting.json",
		"Print", "-k", "greeting",
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), `greeting = "hi"`)

	data, err := os.ReadFile(filepath.Join(dir, "greeting.json"))
	require.NoError(t, err)
	assert.Equal(t, `"hi"`, string(data))
}

func TestRun_ExitCodes(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		code int
	}{
		{name: "bad stage flag", args: []string{"run", "Print", "--nope"}, code: 2},
		{name: "stage failure", args: []string{"run", "Save", "-k", "absent", "-f", "x.json"}, code: 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			err := run(&bytes.Buffer{}, tc.args)
			require.Error(t, err)
			assert.Equal(t, tc.code, cli.AsExitError(err).Code)
		})
	}
}
