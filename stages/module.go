// Package stages holds the stages compiled into the stagegrid binary.
package stages

import (
	"io"
	"os"

	"github.com/vk/stagegrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Out receives Print output. Defaults to os.Stdout.
	Out io.Writer
}

// Register registers every stage of this package.
func (m *Module) Register(r *registry.Registry) {
	out := m.Out
	if out == nil {
		out = os.Stdout
	}
	r.MustRegister(NewPrint(out))
	r.MustRegister(EnvVars)
	r.MustRegister(Save)
	r.MustRegister(Load)
	r.MustRegister(Fetch)
}
