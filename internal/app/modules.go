package app

import (
	"io"

	"github.com/vk/stagegrid/internal/registry"
	"github.com/vk/stagegrid/stages"
	"github.com/vk/stagegrid/stages/socketio"
)

// coreModules is the definitive list of all stage modules that are compiled
// into the stagegrid binary. Print output goes to outW.
func coreModules(outW io.Writer) []registry.Module {
	return []registry.Module{
		&stages.Module{Out: outW},
		&socketio.Module{},
	}
}
