package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/modkit/internal/ctxlog"
	"github.com/vk/modkit/internal/manifest"
	"github.com/vk/modkit/internal/runtime"
	"github.com/vk/modkit/module"
)

// Config holds everything an App needs to run.
type Config struct {
	ManifestPath string
	LogFormat    string
	LogLevel     string
	Watch        bool
}

// App encapsulates one composed runtime and its lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	config  *Config
	core    *runtime.Core
	catalog *manifest.Catalog
	active  map[string]module.Module
}

// NewApp composes the application: logger, manifest, catalog, core. A
// failure here means the module set as declared cannot exist, so it
// panics; the entrypoint recovers and turns it into a clean exit (see
// cmd/cli).
func NewApp(outW io.Writer, cfg *Config, cat *manifest.Catalog) *App {
	logger := ctxlog.New(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if cat == nil {
		cat = BuiltinCatalog()
	}

	plan, err := manifest.Load(ctx, cfg.ManifestPath)
	if err != nil {
		panic(fmt.Errorf("failed to load manifest: %w", err))
	}
	logger.Debug("Manifest loaded.", "modules_declared", len(plan.Specs))

	mods, err := plan.Build(cat)
	if err != nil {
		panic(fmt.Errorf("failed to build modules: %w", err))
	}

	core := runtime.New()
	if err := core.Load(ctx, mods...); err != nil {
		panic(fmt.Errorf("failed to load modules: %w", err))
	}
	logger.Info("Modules loaded.", "count", len(core.Loaded()))

	active := make(map[string]module.Module, len(mods))
	for i, name := range plan.EnabledNames() {
		active[name] = mods[i]
	}

	return &App{
		outW:    outW,
		logger:  logger,
		config:  cfg,
		core:    core,
		catalog: cat,
		active:  active,
	}
}

// Core returns the application's runtime core. This is primarily for
// testing and for platform shims that need the query surface.
func (a *App) Core() *runtime.Core {
	return a.core
}

// Active returns the manifest-name-to-instance mapping of the initial load.
func (a *App) Active() map[string]module.Module {
	return a.active
}

// Logger returns the application's logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}
