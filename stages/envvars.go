package stages

import (
	"context"
	"os"
	"strings"

	"github.com/vk/stagegrid/internal/argument"
	"github.com/vk/stagegrid/internal/pattern"
	"github.com/vk/stagegrid/internal/scope"
	"github.com/vk/stagegrid/internal/stage"
	"github.com/vk/stagegrid/internal/storage"
)

// EnvVars copies environment variables into the scope.
var EnvVars = &stage.Definition{
	Name:        "EnvVars",
	Description: "Copy environment variables into the scope as a mapping.",
	Args: []*argument.Argument{
		argument.MustNew(argument.Argument{Name: "prefix", Abbreviation: "-p", Type: pattern.String, Default: "", Help: "only copy variables starting with this prefix"}),
		argument.MustNew(argument.Argument{Name: "strip_prefix", Type: pattern.Bool, Default: false, Help: "remove the prefix from the copied names"}),
		argument.MustNew(argument.Argument{Name: "key", Type: pattern.String, Default: "env", Help: "scope key to store the mapping under"}),
	},
	Build: func(b stage.Base) stage.Stage { return &envVars{Base: b} },
}

type envVars struct {
	stage.Base
}

func (e *envVars) Run(_ context.Context, sc *scope.Scope, _ storage.Storage) error {
	prefix := e.Text("prefix")
	env := make(map[string]any)
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, prefix) {
			continue
		}
		if e.Bool("strip_prefix") {
			name = strings.TrimPrefix(name, prefix)
		}
		env[name] = value
	}
	sc.Set(e.Text("key"), env)
	return nil
}
