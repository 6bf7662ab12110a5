package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/stagegrid/internal/app"
	"github.com/vk/stagegrid/internal/registry"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an app run.
type HarnessResult struct {
	// Output holds both the logs and anything stages printed.
	Output string
	Err    error
	App    *app.App
}

// RunApp runs an app built from cfg and modules with a background context.
// Logging is forced to debug so AssertStageRan can inspect it.
func RunApp(t *testing.T, cfg app.Config, modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunAppWithContext(context.Background(), t, cfg, modules...)
}

// RunAppWithContext is RunApp with a caller provided context.
func RunAppWithContext(ctx context.Context, t *testing.T, cfg app.Config, modules ...registry.Module) *HarnessResult {
	t.Helper()

	cfg.LogLevel = "debug"
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	appConfig, err := app.NewConfig(cfg)
	require.NoError(t, err)

	buf := &SafeBuffer{}
	var (
		testApp  *app.App
		panicErr any
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr = r
			}
		}()
		testApp = app.NewApp(buf, appConfig, modules...)
	}()
	if panicErr != nil {
		return &HarnessResult{
			Output: buf.String(),
			Err:    fmt.Errorf("application startup panicked | %v", panicErr),
		}
	}

	runErr := testApp.Run(ctx)
	if os.Getenv("STAGEGRID_TEST_LOGS") == "true" {
		t.Logf("--- Full Output for %s ---\n%s", t.Name(), buf.String())
	}
	return &HarnessResult{Output: buf.String(), Err: runErr, App: testApp}
}
