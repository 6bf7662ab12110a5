package workflow

import (
	"context"
	"fmt"
	"io"
	"maps"

	"github.com/vk/stagegrid/internal/cmdline"
	"github.com/vk/stagegrid/internal/ctxlog"
	"github.com/vk/stagegrid/internal/pattern"
	"github.com/vk/stagegrid/internal/stage"
	"github.com/vk/stagegrid/internal/storage"
)

// CommandOptions configures FromCommand.
type CommandOptions struct {
	// Prog is the program name shown in usage text.
	Prog string
	// Registry is searched for stage names unless --module-names is given.
	Registry string
	// Scope holds initial scope values; --define entries override them.
	Scope map[string]any
	// Output receives usage and parse errors.
	Output io.Writer
}

// FromCommand builds a workflow from command-line tokens:
//
//	[--storage LOCATION] [-d NAME VALUE]... [-m REGISTRY] WORKFLOW...
//
// WORKFLOW is either one path to a .json, .yaml or .yml document, or stage
// names each followed by that stage's own flags. A token starts a new stage
// whenever it resolves to a stage name. Define values are read as literals
// when they parse as one and kept as text otherwise.
func FromCommand(ctx context.Context, args []string, resolve stage.Resolver, opts CommandOptions) (_ *Workflow, err error) {
	logger := ctxlog.FromContext(ctx)
	prog := opts.Prog
	if prog == "" {
		prog = "stagegrid"
	}

	p := cmdline.New(prog, "Run a workflow.", opts.Output)
	flags := []cmdline.Flag{
		{Names: []string{"--storage"}, Dest: "storage", Nargs: cmdline.One, Help: "storage location to use", Metavar: "LOCATION"},
		{Names: []string{"--define", "-d"}, Dest: "define", Nargs: cmdline.Exactly(2), Append: true, Help: "define a workflow-specific value", Metavar: "NAME VALUE"},
		{Names: []string{"--module-names", "-m"}, Dest: "module_names", Nargs: cmdline.One, Help: "stage registry to search", Metavar: "REGISTRY"},
	}
	for _, f := range flags {
		if err := p.Add(f); err != nil {
			return nil, err
		}
	}
	p.Remainder("workflow", "WORKFLOW", "stage names and their flags, or a workflow document")

	vals, err := p.Parse(args)
	if err != nil {
		return nil, err
	}

	registryName := opts.Registry
	if name, ok := vals["module_names"].(string); ok {
		registryName = name
	}

	initial := pattern.Clone(opts.Scope).(map[string]any)
	stampInvocation(initial, map[string]any{
		"name":          "from_command",
		"arguments":     append([]string{}, args...),
		"module_names":  registryName,
		"initial_scope": pattern.JSONValue(opts.Scope),
	})

	var st storage.Storage
	if location, ok := vals["storage"].(string); ok {
		st, err = storage.FromLocation(location)
		if err != nil {
			return nil, err
		}
	}
	defer func() {
		if err != nil && st != nil {
			st.Close()
		}
	}()

	tokens, _ := vals["workflow"].([]string)
	var stages []stage.Stage
	if len(tokens) == 1 && IsDocumentPath(tokens[0]) {
		doc, err := LoadDocument(tokens[0])
		if err != nil {
			return nil, err
		}
		template, err := FromJSON(ctx, doc, resolve, registryName)
		if err != nil {
			return nil, err
		}
		if st != nil {
			logger.Warn("Document storage replaces --storage.", "storage", st.Descriptor())
			st.Close()
		}
		st = template.Storage
		maps.Copy(initial, template.Scope)
		stages = template.Stages
	} else {
		stages, err = stagesFromTokens(ctx, tokens, resolve, registryName, opts.Output)
		if err != nil {
			return nil, err
		}
	}

	defines, _ := vals["define"].([]any)
	for _, d := range defines {
		pair := d.([]any)
		name, raw := pair[0].(string), pair[1].(string)
		value, err := pattern.ParseLiteral(raw)
		if err != nil {
			value = raw
		}
		initial[name] = value
	}

	logger.Debug("Workflow built from command line.", "stages", len(stages), "registry", registryName)
	return New(stages, st, initial)
}

// stagesFromTokens splits tokens at every stage name and builds each stage
// from the flags that follow it.
func stagesFromTokens(ctx context.Context, tokens []string, resolve stage.Resolver, registryName string, out io.Writer) ([]stage.Stage, error) {
	type group struct {
		def  *stage.Definition
		args []string
	}
	var groups []*group
	for _, tok := range tokens {
		def, err := resolve(registryName, tok)
		if err == nil {
			groups = append(groups, &group{def: def})
			continue
		}
		if len(groups) == 0 {
			return nil, fmt.Errorf("failed finding stage %q: %w", tok, err)
		}
		groups[len(groups)-1].args = append(groups[len(groups)-1].args, tok)
	}

	stages := make([]stage.Stage, 0, len(groups))
	for _, g := range groups {
		s, err := g.def.FromCommand(ctx, g.args, out)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", g.def.Name, err)
		}
		stages = append(stages, s)
	}
	return stages, nil
}
