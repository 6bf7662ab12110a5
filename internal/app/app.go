package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/vk/stagegrid/internal/ctxlog"
	"github.com/vk/stagegrid/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	registries *registry.Set
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registries.
// Modules are registered into the default registry; when none are given the
// built-in stages are used. Registering two stages under one name panics.
func NewApp(outW io.Writer, appConfig *Config, modules ...registry.Module) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	core := registry.New(registry.Default)
	if len(modules) == 0 {
		modules = coreModules(outW)
	}
	for _, mod := range modules {
		mod.Register(core)
	}
	logger.Debug("All stage modules registered.", "count", len(modules), "stages", core.Names())

	if appConfig.Registry == "" {
		appConfig.Registry = registry.Default
	}

	return &App{
		outW:       outW,
		logger:     logger,
		config:     appConfig,
		registries: registry.NewSet(core),
	}
}

// Registries returns the application's registry set. Extra registries added
// here can be selected with --module-names.
func (a *App) Registries() *registry.Set {
	return a.registries
}

func (a *App) context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}
