// Package reloader applies manifest changes to a running core: modules
// newly enabled in the file get loaded, modules removed or disabled get
// unloaded. It is the dynamic-reconfiguration entry point; the core's own
// invariants (dependency safety, singleton types) keep a bad edit from
// wedging the runtime.
package reloader

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/vk/modkit/internal/ctxlog"
	"github.com/vk/modkit/internal/manifest"
	"github.com/vk/modkit/internal/runtime"
	"github.com/vk/modkit/module"
)

// Reloader tracks which loaded module instance came from which manifest
// name so later diffs know what to unload.
type Reloader struct {
	core    *runtime.Core
	catalog *manifest.Catalog
	path    string
	active  map[string]module.Module
}

// New creates a reloader over a core whose initial manifest load produced
// the given name-to-instance mapping.
func New(core *runtime.Core, cat *manifest.Catalog, path string, active map[string]module.Module) *Reloader {
	if active == nil {
		active = make(map[string]module.Module)
	}
	return &Reloader{core: core, catalog: cat, path: path, active: active}
}

// Active returns the manifest names currently mapped to loaded instances.
func (r *Reloader) Active() []string {
	out := make([]string, 0, len(r.active))
	for name := range r.active {
		out = append(out, name)
	}
	return out
}

// Apply re-reads the manifest and reconciles the core against it.
// Disabled or removed modules unload first so their types free up for
// replacements; newly enabled modules load afterwards in declaration
// order. A module whose unload is blocked by dependents stays active and
// the error is returned after the rest of the diff is applied.
func (r *Reloader) Apply(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	plan, err := manifest.Load(ctx, r.path)
	if err != nil {
		return fmt.Errorf("reloading manifest: %w", err)
	}

	enabled := make(map[string]bool)
	for _, name := range plan.EnabledNames() {
		enabled[name] = true
	}

	var firstErr error

	// Unload pass, dependents first: walking the core's load order in
	// reverse guarantees a chain disabled in one edit comes apart in a
	// single pass.
	byInstance := make(map[module.Module]string, len(r.active))
	for name, inst := range r.active {
		byInstance[inst] = name
	}
	loaded := r.core.Loaded()
	for i := len(loaded) - 1; i >= 0; i-- {
		name, ok := byInstance[loaded[i]]
		if !ok || enabled[name] {
			continue
		}
		if err := r.core.Unload(ctx, loaded[i]); err != nil {
			logger.Warn("Keeping module: unload refused.", "module", name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		delete(r.active, name)
		logger.Info("Module unloaded by manifest change.", "module", name)
	}

	// Load pass, in declaration order.
	for _, spec := range plan.Specs {
		if !spec.Enabled {
			continue
		}
		if _, ok := r.active[spec.Name]; ok {
			continue // already running; settings changes need a disable/enable cycle
		}
		inst, err := r.catalog.New(spec.Name, spec.Settings)
		if err != nil {
			logger.Warn("Skipping module: construction failed.", "module", spec.Name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := r.core.Load(ctx, inst); err != nil {
			logger.Warn("Skipping module: load failed.", "module", spec.Name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		r.active[spec.Name] = inst
		logger.Info("Module loaded by manifest change.", "module", spec.Name)
	}

	return firstErr
}

// Watch blocks until ctx is done, applying the manifest on every write.
// The parent directory is watched rather than the file itself because
// editors and config writers typically replace the file atomically.
func (r *Reloader) Watch(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting manifest watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(r.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	logger.Info("Watching manifest for changes.", "path", r.path)

	target, err := filepath.Abs(r.path)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || name != target {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			logger.Debug("Manifest changed on disk.", "op", event.Op.String())
			if err := r.Apply(ctx); err != nil {
				// A bad edit must not kill the runtime; log and keep watching.
				logger.Error("Manifest reload failed.", "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("Manifest watcher error.", "error", err)
		}
	}
}
