package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vk/stagegrid/internal/argument"
	"github.com/vk/stagegrid/internal/pattern"
	"github.com/vk/stagegrid/internal/registry"
	"github.com/vk/stagegrid/internal/scope"
	"github.com/vk/stagegrid/internal/stage"
	"github.com/vk/stagegrid/internal/storage"
)

// ErrRecordFailed is returned by Record stages created with fail=true.
var ErrRecordFailed = errors.New("record stage failed")

// Recorder is a module whose "Record" stage appends an ExecutionRecord each
// time it runs and sets its label to true in the scope.
type Recorder struct {
	mu      sync.Mutex
	records []ExecutionRecord
}

// Register implements the registry.Module interface.
func (m *Recorder) Register(r *registry.Registry) {
	r.MustRegister(m.Definition())
}

// Definition returns the Record stage definition bound to m.
func (m *Recorder) Definition() *stage.Definition {
	return &stage.Definition{
		Name:        "Record",
		Description: "Record that the stage ran.",
		Args: []*argument.Argument{
			argument.MustNew(argument.Argument{Name: "label", Type: pattern.String, Required: true}),
			argument.MustNew(argument.Argument{Name: "fail", Type: pattern.Bool, Default: false}),
		},
		Build: func(b stage.Base) stage.Stage { return &recordStage{Base: b, rec: m} },
	}
}

// Records returns a copy of what has been recorded so far.
func (m *Recorder) Records() []ExecutionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutionRecord(nil), m.records...)
}

// Labels returns the labels of the recorded runs in order.
func (m *Recorder) Labels() []string {
	var out []string
	for _, r := range m.Records() {
		out = append(out, r.Label)
	}
	return out
}

type recordStage struct {
	stage.Base
	rec *Recorder
}

func (s *recordStage) Run(_ context.Context, sc *scope.Scope, _ storage.Storage) error {
	r := ExecutionRecord{Label: s.Text("label"), Start: time.Now(), Keys: sc.Keys()}
	defer func() {
		r.End = time.Now()
		s.rec.mu.Lock()
		s.rec.records = append(s.rec.records, r)
		s.rec.mu.Unlock()
	}()
	if s.Bool("fail") {
		return ErrRecordFailed
	}
	sc.Set(r.Label, true)
	return nil
}
