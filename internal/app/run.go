package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/stagegrid/internal/cmdline"
	"github.com/vk/stagegrid/internal/workflow"
)

// Run executes the configured command.
func (a *App) Run(ctx context.Context) error {
	ctx = a.context(ctx)
	a.logger.Debug("App.Run method started.", "command", a.config.Command)

	var err error
	switch a.config.Command {
	case CommandRun:
		err = a.runWorkflow(ctx)
	case CommandFreeze:
		err = a.freeze(ctx)
	case CommandList:
		err = a.list()
	default:
		err = fmt.Errorf("unknown command %q", a.config.Command)
	}
	if errors.Is(err, cmdline.ErrHelp) {
		return nil
	}

	a.logger.Debug("App.Run method finished.", "error", err)
	return err
}

func (a *App) build(ctx context.Context, prog string) (*workflow.Workflow, error) {
	return workflow.FromCommand(ctx, a.config.Args, a.registries.Resolve, workflow.CommandOptions{
		Prog:     prog,
		Registry: a.config.Registry,
		Output:   a.outW,
	})
}

func (a *App) runWorkflow(ctx context.Context) (err error) {
	wf, err := a.build(ctx, "stagegrid run")
	if err != nil {
		return err
	}
	defer func() {
		if cerr := wf.Storage.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	a.logger.Info("🚀 Starting workflow.", "stages", len(wf.Stages), "storage", wf.Storage.Descriptor())
	if _, err := wf.Run(ctx); err != nil {
		return fmt.Errorf("workflow failed: %w", err)
	}
	a.logger.Info("🏁 Workflow finished.")
	return nil
}

func (a *App) freeze(ctx context.Context) error {
	wf, err := a.build(ctx, "stagegrid freeze "+a.config.Output)
	if err != nil {
		return err
	}
	defer wf.Storage.Close()
	return workflow.Freeze(ctx, wf, a.config.Output)
}

// list prints every registered stage with its summary, or the full
// documentation of the stages named in Args.
func (a *App) list() error {
	if len(a.config.Args) > 0 {
		for _, name := range a.config.Args {
			def, err := a.registries.Resolve(a.config.Registry, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.outW, "%s\n\n%s\n\n", def.Name, def.Documentation())
		}
		return nil
	}

	for _, regName := range a.registries.Names() {
		reg := a.registries.Get(regName)
		fmt.Fprintf(a.outW, "%s:\n", regName)
		for _, name := range reg.Names() {
			def, err := reg.Lookup(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.outW, "  %-16s %s\n", name, def.Summary())
		}
	}
	return nil
}
