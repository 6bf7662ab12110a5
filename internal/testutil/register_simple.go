package testutil

import (
	"github.com/vk/stagegrid/internal/registry"
	"github.com/vk/stagegrid/internal/stage"
)

// SimpleModule is a test helper registering the given definitions.
type SimpleModule struct {
	Defs []*stage.Definition
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	for _, def := range m.Defs {
		r.MustRegister(def)
	}
}
