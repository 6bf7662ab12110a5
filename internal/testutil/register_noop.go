package testutil

import (
	"github.com/vk/stagegrid/internal/registry"
	"github.com/vk/stagegrid/internal/stage"
)

// NoOpModule registers a single "NoOp" stage that takes no arguments and does
// nothing. The Base stage's Run is used as is.
type NoOpModule struct{}

// Register implements the registry.Module interface.
func (m *NoOpModule) Register(r *registry.Registry) {
	r.MustRegister(&stage.Definition{
		Name:        "NoOp",
		Description: "Do nothing.",
	})
}
