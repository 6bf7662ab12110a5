// Package workflow runs an ordered list of stages against one storage backend
// and one scope, and builds such pipelines from documents or command lines.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/vk/stagegrid/internal/ctxlog"
	"github.com/vk/stagegrid/internal/scope"
	"github.com/vk/stagegrid/internal/stage"
	"github.com/vk/stagegrid/internal/storage"
)

// Scope keys injected by Run.
const (
	KeyWorkflow  = "workflow"
	KeyExitStack = "exit_stack"
	KeyMetadata  = "metadata"
)

// Workflow is one pipeline: stages run in order against the same storage and
// a scope seeded from Scope.
type Workflow struct {
	Stages  []stage.Stage
	Storage storage.Storage
	// Scope holds the initial scope values.
	Scope map[string]any
}

// New builds a workflow. A nil storage means a directory storage rooted at
// the working directory.
func New(stages []stage.Stage, st storage.Storage, initial map[string]any) (*Workflow, error) {
	if st == nil {
		var err error
		st, err = storage.NewDirectory(".", "")
		if err != nil {
			return nil, err
		}
	}
	return &Workflow{Stages: stages, Storage: st, Scope: maps.Clone(initial)}, nil
}

// Run executes every stage once, in order, and returns the final scope. The
// first failing stage aborts the run; whatever it and earlier stages wrote to
// the scope or storage stays in place. Cleanups pushed on the exit stack run
// after the last stage, or after the failure.
func (w *Workflow) Run(ctx context.Context) (_ *scope.Scope, err error) {
	logger := ctxlog.FromContext(ctx)

	sc := scope.New(w.Scope)
	exits := &ExitStack{}
	sc.Set(KeyWorkflow, w)
	sc.Set(KeyExitStack, exits)
	defer func() {
		if cerr := exits.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("exit stack: %w", cerr))
		}
	}()

	logger.Info("Starting workflow.", "stages", len(w.Stages))
	start := time.Now()
	for i, s := range w.Stages {
		if err := ctx.Err(); err != nil {
			return sc, err
		}
		name := s.Definition().Name
		logger.Debug("Running stage.", "index", i, "stage", name)
		stageStart := time.Now()
		if err := s.Run(ctx, sc, w.Storage); err != nil {
			logger.Error("Stage failed.", "index", i, "stage", name, "error", err)
			return sc, fmt.Errorf("stage %d (%s): %w", i, name, err)
		}
		logger.Debug("Stage finished.", "index", i, "stage", name, "duration", time.Since(stageStart))
	}
	logger.Info("Workflow finished.", "duration", time.Since(start))
	return sc, nil
}

// ExitStack collects cleanups that run when the workflow finishes.
type ExitStack struct {
	mu  sync.Mutex
	fns []func() error
}

// Push registers fn. Cleanups run in reverse order of registration.
func (e *ExitStack) Push(fn func() error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fns = append(e.fns, fn)
}

// Close runs every pending cleanup and returns their joined errors.
func (e *ExitStack) Close() error {
	e.mu.Lock()
	fns := e.fns
	e.fns = nil
	e.mu.Unlock()

	var errs []error
	for i := len(fns) - 1; i >= 0; i-- {
		if err := fns[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
