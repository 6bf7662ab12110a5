package stages

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/vk/stagegrid/internal/argument"
	"github.com/vk/stagegrid/internal/ctxlog"
	"github.com/vk/stagegrid/internal/pattern"
	"github.com/vk/stagegrid/internal/scope"
	"github.com/vk/stagegrid/internal/stage"
	"github.com/vk/stagegrid/internal/storage"
)

// Load binds a storage entry to a scope key. The entry is read the first time
// a later stage asks for the key.
var Load = &stage.Definition{
	Name:        "Load",
	Description: "Bind a storage entry to a scope key.\n\nThe entry is only read when the key is first used.",
	Args: []*argument.Argument{
		argument.MustNew(argument.Argument{Name: "filename", Abbreviation: "-f", Type: pattern.String, Required: true, Help: "storage entry to read"}),
		argument.MustNew(argument.Argument{Name: "key", Abbreviation: "-k", Type: pattern.String, Required: true, Help: "scope key to bind"}),
		argument.MustNew(argument.Argument{
			Name:        "format",
			Type:        pattern.String,
			Default:     "json",
			ValidValues: argument.OneOf("json", "yaml", "text", "bytes"),
			Help:        "how to decode the entry",
		}),
		argument.MustNew(argument.Argument{Name: "modifiers", Type: pattern.List{pattern.String}, Help: "name modifiers inserted before the extension"}),
	},
	Build: func(b stage.Base) stage.Stage { return &load{Base: b} },
}

type load struct {
	stage.Base
}

func (l *load) Run(ctx context.Context, sc *scope.Scope, st storage.Storage) error {
	logger := ctxlog.FromContext(ctx)
	name, format := l.Text("filename"), l.Text("format")
	modifiers := l.Texts("modifiers")

	sc.SetCall(l.Text("key"), func() (any, error) {
		logger.Debug("Loading storage entry.", "entry", name, "format", format)
		data, err := storage.ReadAll(st, name, storage.WithModifiers(modifiers...))
		if err != nil {
			return nil, err
		}
		return decode(data, format)
	})
	return nil
}

func decode(data []byte, format string) (any, error) {
	var v any
	switch format {
	case "text":
		return string(data), nil
	case "bytes":
		return data, nil
	case "yaml":
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decoding yaml: %w", err)
		}
		return v, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decoding json: %w", err)
	}
	return pattern.NormalizeNumbers(v), nil
}
