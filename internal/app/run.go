package app

import (
	"context"

	"github.com/vk/modkit/internal/ctxlog"
	"github.com/vk/modkit/internal/registry"
	"github.com/vk/modkit/internal/reloader"
	"github.com/vk/modkit/modules/reporter"
)

// Run executes the composed application. Without watch mode it emits the
// startup report and returns; with watch mode it blocks, reconciling the
// core against manifest edits until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run started.")

	if rep, ok := registry.Get[*reporter.Module](a.core.Anchor()); ok {
		rep.Report(ctx)
	}

	if a.config.Watch {
		rel := reloader.New(a.core, a.catalog, a.config.ManifestPath, a.active)
		return rel.Watch(ctx)
	}

	a.logger.Debug("App.Run finished.")
	return nil
}
