package runtime

import (
	"context"
	"fmt"
	"reflect"

	"github.com/vk/modkit/internal/ctxlog"
	"github.com/vk/modkit/module"
)

// Unload removes a loaded module from the core. It refuses when any
// loaded module holds a non-optional binding on the target; optional
// dependents stay loaded, get their binding cleared, and observe absence
// on their next lookup. Implicitly created defaults left without any
// dependents are unloaded along the way.
func (c *Core) Unload(ctx context.Context, m module.Module) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := module.TypeOf(m)
	e, ok := c.entries[t]
	if !ok || e.mod != m {
		return fmt.Errorf("%w: %v", ErrNotLoaded, t)
	}

	if deps := c.hardDependents(t); len(deps) > 0 {
		names := make([]string, len(deps))
		for i, d := range deps {
			names[i] = d.String()
		}
		return fmt.Errorf("%w: %v is required by %v", ErrHasDependents, t, names)
	}

	return c.unloadEntry(ctx, e)
}

// unloadEntry removes one entry and cascades into defaulted dependencies
// nobody needs anymore. Caller holds mu and has verified there are no
// hard dependents.
func (c *Core) unloadEntry(ctx context.Context, e *entry) error {
	logger := ctxlog.FromContext(ctx)
	t := module.TypeOf(e.mod)

	if u, ok := e.mod.(module.Unloadable); ok {
		if err := u.Unload(ctx); err != nil {
			return fmt.Errorf("unloading %v: %w", t, err)
		}
	}

	c.anchor.RemoveKey(t)
	delete(c.entries, t)
	c.dropFromOrder(t)

	// Clear the target's own outgoing bindings so dependency counts on
	// its dependencies drop, and remember where they pointed for the
	// cascade below.
	var pointed []reflect.Type
	for _, b := range e.bindings {
		if b.bound {
			pointed = append(pointed, b.dep.Type)
			b.bound = false
		}
	}

	// Optional dependents observe the absence through a nil rebind.
	for _, ot := range c.order {
		oe := c.entries[ot]
		for _, b := range oe.bindings {
			if b.bound && b.dep.Type == t {
				b.dep.Bind(nil)
				b.bound = false
			}
		}
	}

	changed := c.dropProvider(t)
	c.dropCollector(t)
	c.propagate(changed)

	logger.Debug("Module unloaded.", "type", t.String(), "implicit", e.implicit)

	// Cascade: an implicitly created module whose last dependent just
	// went away has no reason to stay.
	for _, dt := range pointed {
		de, ok := c.entries[dt]
		if !ok || !de.implicit {
			continue
		}
		if c.anyDependents(dt) {
			continue
		}
		if err := c.unloadEntry(ctx, de); err != nil {
			return err
		}
	}
	return nil
}
