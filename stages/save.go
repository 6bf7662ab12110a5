package stages

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vk/stagegrid/internal/argument"
	"github.com/vk/stagegrid/internal/ctxlog"
	"github.com/vk/stagegrid/internal/pattern"
	"github.com/vk/stagegrid/internal/scope"
	"github.com/vk/stagegrid/internal/stage"
	"github.com/vk/stagegrid/internal/storage"
)

// Save writes a scope value to storage as JSON.
var Save = &stage.Definition{
	Name:        "Save",
	Description: "Write a scope value to storage as JSON.",
	Args: []*argument.Argument{
		argument.MustNew(argument.Argument{Name: "key", Abbreviation: "-k", Type: pattern.String, Required: true, Help: "scope key to save"}),
		argument.MustNew(argument.Argument{Name: "filename", Abbreviation: "-f", Type: pattern.String, Required: true, Help: "storage entry to write"}),
		argument.MustNew(argument.Argument{Name: "modifiers", Type: pattern.List{pattern.String}, Help: "name modifiers inserted before the extension"}),
		argument.MustNew(argument.Argument{Name: "append", Type: pattern.Bool, Default: false, Help: "append a JSON line instead of replacing the entry"}),
		argument.MustNew(argument.Argument{Name: "dry_run", Type: pattern.Bool, Default: false, Help: "encode the value but write nothing"}),
	},
	Build: func(b stage.Base) stage.Stage { return &save{Base: b} },
}

type save struct {
	stage.Base
}

func (s *save) Run(ctx context.Context, sc *scope.Scope, st storage.Storage) error {
	key := s.Text("key")
	v, err := sc.Get(key)
	if err != nil {
		return err
	}
	data, err := json.Marshal(pattern.JSONValue(v))
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}

	mode := "w"
	if s.Bool("append") {
		mode = "a"
		data = append(data, '\n')
	}
	opts := []storage.OpenOption{
		storage.WithModifiers(s.Texts("modifiers")...),
		storage.NoopIf(s.Bool("dry_run")),
	}
	err = storage.With(st, s.Text("filename"), mode, func(h storage.Handle) error {
		ctxlog.FromContext(ctx).Debug("Saving scope value.", "key", key, "entry", h.Name(), "bytes", len(data))
		_, err := h.Write(data)
		return err
	}, opts...)
	if err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}
	return nil
}
