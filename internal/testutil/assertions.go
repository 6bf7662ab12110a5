package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertStageRan checks that the stage at index completed, based on the debug
// log line the workflow writes after each stage.
func AssertStageRan(t *testing.T, result *HarnessResult, index int, name string) {
	t.Helper()
	want := fmt.Sprintf(`msg="Stage finished." index=%d stage=%s`, index, name)
	require.True(t,
		strings.Contains(result.Output, want),
		"expected stage %d (%s) to have finished; output:\n%s", index, name, result.Output,
	)
}

// AssertStageNotRan is the inverse of AssertStageRan.
func AssertStageNotRan(t *testing.T, result *HarnessResult, index int, name string) {
	t.Helper()
	unwanted := fmt.Sprintf(`msg="Running stage." index=%d stage=%s`, index, name)
	require.False(t,
		strings.Contains(result.Output, unwanted),
		"expected stage %d (%s) not to run", index, name,
	)
}
