package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/vk/stagegrid/internal/argument"
	"github.com/vk/stagegrid/internal/ctxlog"
	"github.com/vk/stagegrid/internal/pattern"
	"github.com/vk/stagegrid/internal/scope"
	"github.com/vk/stagegrid/internal/stage"
	"github.com/vk/stagegrid/internal/storage"
	"github.com/vk/stagegrid/internal/workflow"
)

// NewPrint defines the Print stage writing to out.
func NewPrint(out io.Writer) *stage.Definition {
	return &stage.Definition{
		Name:        "Print",
		Description: "Print scope values.\n\nValues are rendered as JSON where possible. Pending values are resolved.",
		Args: []*argument.Argument{
			argument.MustNew(argument.Argument{
				Name:         "keys",
				Abbreviation: "-k",
				Type:         pattern.List{pattern.String},
				Help:         "scope keys to print; every key when empty",
			}),
			argument.MustNew(argument.Argument{
				Name:    "missing",
				Type:    pattern.String,
				Default: "(null)",
				Help:    "text printed for absent keys",
			}),
		},
		Build: func(b stage.Base) stage.Stage { return &printStage{Base: b, out: out} },
	}
}

type printStage struct {
	stage.Base
	out io.Writer
}

func (p *printStage) Run(ctx context.Context, sc *scope.Scope, _ storage.Storage) error {
	ctxlog.FromContext(ctx).Info("Printing scope values")

	keys := p.Texts("keys")
	if len(keys) == 0 {
		for _, k := range sc.Keys() {
			if k != workflow.KeyWorkflow && k != workflow.KeyExitStack {
				keys = append(keys, k)
			}
		}
	}

	for _, k := range keys {
		if !sc.Has(k) {
			fmt.Fprintf(p.out, "%s = %s\n", k, p.Text("missing"))
			continue
		}
		v, err := sc.Get(k)
		if err != nil {
			return err
		}
		fmt.Fprintf(p.out, "%s = %s\n", k, render(v))
	}
	return nil
}

func render(v any) string {
	data, err := json.Marshal(pattern.JSONValue(v))
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
