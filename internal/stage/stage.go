// Package stage defines the unit of work of a workflow.
//
// A Definition declares a stage type: its name, documentation, arguments and
// how to build the concrete value. Instances are constructed from keyword
// values, from a JSON record or from command-line tokens, and all three paths
// share one protocol: declared defaults are seeded first, supplied values are
// coerced over them, and every missing required argument is reported together.
package stage

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/vk/stagegrid/internal/argument"
	"github.com/vk/stagegrid/internal/cmdline"
	"github.com/vk/stagegrid/internal/ctxlog"
	"github.com/vk/stagegrid/internal/pattern"
	"github.com/vk/stagegrid/internal/scope"
	"github.com/vk/stagegrid/internal/storage"
)

// Stage is a constructed, immutable pipeline step.
type Stage interface {
	Definition() *Definition
	// Arguments returns the materialized argument values by name.
	Arguments() map[string]any
	// Run executes the stage once against the shared scope and storage.
	Run(ctx context.Context, sc *scope.Scope, st storage.Storage) error
}

// Resolver finds the definition registered as name in the named registry.
type Resolver func(registry, name string) (*Definition, error)

// Definition declares a stage type.
type Definition struct {
	Name string
	// Description is free text; its first paragraph is the command-line
	// summary.
	Description string
	Args        []*argument.Argument
	// Build wraps the validated Base in the concrete stage. When nil, the
	// stage is a Base whose Run does nothing.
	Build func(b Base) Stage
}

// Validate checks that the definition is usable.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("stage definition has no name")
	}
	names := make(map[string]bool, len(d.Args))
	flags := make(map[string]bool, len(d.Args))
	for _, a := range d.Args {
		if a == nil {
			return fmt.Errorf("stage %s: nil argument", d.Name)
		}
		if names[a.Name] {
			return fmt.Errorf("stage %s: duplicate argument %q", d.Name, a.Name)
		}
		names[a.Name] = true
		for _, f := range []string{a.FlagName(), a.Abbreviation} {
			if f == "" {
				continue
			}
			if flags[f] {
				return fmt.Errorf("stage %s: argument %s reuses flag %s", d.Name, a.Name, f)
			}
			flags[f] = true
		}
	}
	return nil
}

// New constructs a stage from keyword values.
func (d *Definition) New(ctx context.Context, kwargs map[string]any) (Stage, error) {
	logger := ctxlog.FromContext(ctx)

	specs := make([]*argument.Argument, len(d.Args))
	byName := make(map[string]*argument.Argument, len(d.Args))
	values := make(map[string]any, len(d.Args))
	for i, a := range d.Args {
		specs[i] = a.Clone()
		byName[a.Name] = specs[i]
		if specs[i].Default != nil {
			values[a.Name] = pattern.Clone(specs[i].Default)
		}
	}

	keys := make([]string, 0, len(kwargs))
	for k := range kwargs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var unused []string
	for _, k := range keys {
		a, ok := byName[k]
		if !ok {
			unused = append(unused, k)
			continue
		}
		v, err := a.Validate(kwargs[k])
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", d.Name, err)
		}
		values[k] = pattern.Clone(v)
	}
	if len(unused) > 0 {
		logger.Warn("Ignoring unused stage arguments.", "stage", d.Name, "arguments", unused)
	}

	var missing []string
	for _, a := range specs {
		if _, ok := values[a.Name]; a.Required && !ok {
			missing = append(missing, a.Name)
		}
	}
	if len(missing) > 0 {
		return nil, &argument.ValidationError{Stage: d.Name, Names: missing}
	}

	b := Base{def: d, specs: specs, values: values, unused: unused}
	if d.Build == nil {
		return &b, nil
	}
	return d.Build(b), nil
}

// FromJSON constructs a stage from the arguments of a record. Resolving the
// record's type to this definition is the caller's job.
func (d *Definition) FromJSON(ctx context.Context, rec Record) (Stage, error) {
	return d.New(ctx, rec.Arguments)
}

// FromCommand parses tokens as this stage's flags and constructs the stage.
// Flags that were not given keep their declared defaults. Usage and errors are
// written to out.
func (d *Definition) FromCommand(ctx context.Context, tokens []string, out io.Writer) (Stage, error) {
	p := cmdline.New(d.Name, d.Summary(), out)
	for _, a := range d.Args {
		if err := a.RegisterParser(p); err != nil {
			return nil, fmt.Errorf("stage %s: %w", d.Name, err)
		}
	}
	raw, err := p.Parse(tokens)
	if err != nil {
		return nil, err
	}

	kwargs := make(map[string]any, len(raw))
	for _, a := range d.Args {
		v, ok := raw[a.Name]
		if !ok {
			continue
		}
		cv, err := a.ValidateCmd(v)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", d.Name, err)
		}
		kwargs[a.Name] = cv
	}
	return d.New(ctx, kwargs)
}

// Summary is the first paragraph of the description.
func (d *Definition) Summary() string {
	desc := strings.TrimSpace(d.Description)
	if i := strings.Index(desc, "\n\n"); i >= 0 {
		desc = desc[:i]
	}
	return desc
}

// Documentation renders the description followed by one line per argument.
func (d *Definition) Documentation() string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(d.Description))
	if len(d.Args) > 0 {
		b.WriteString("\n")
	}
	for _, a := range d.Args {
		fmt.Fprintf(&b, "\n:param %s: %s", a.Name, a.Help)
		if a.Required {
			b.WriteString(" (required)")
		}
		if a.Default != nil {
			fmt.Fprintf(&b, " (default: %v)", a.Default)
		}
	}
	return b.String()
}

// Record is the serialized form of a stage.
type Record struct {
	Type       string         `json:"type" yaml:"type"`
	ModuleName string         `json:"module_name,omitempty" yaml:"module_name,omitempty"`
	Arguments  map[string]any `json:"arguments" yaml:"arguments"`
}

// ToJSON serializes s. Mapping values with non-string keys are converted so
// the record can be encoded as JSON.
func ToJSON(s Stage) Record {
	args := make(map[string]any)
	for k, v := range s.Arguments() {
		args[k] = pattern.JSONValue(v)
	}
	return Record{Type: s.Definition().Name, Arguments: args}
}
