package runtime

import (
	"context"
	"fmt"

	"github.com/vk/modkit/internal/ctxlog"
	"github.com/vk/modkit/internal/resolver"
	"github.com/vk/modkit/module"
)

// Load resolves and initializes a batch of modules against the currently
// loaded set. On success every submitted module, plus any implicitly
// created defaults, is configured and stored in the anchor. On failure
// the load stops at the offending module; modules configured earlier in
// the same batch stay loaded.
func (c *Core) Load(ctx context.Context, mods ...module.Module) error {
	logger := ctxlog.FromContext(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	// A module instance is one-shot. Catch duplicates both against
	// history and within the batch itself.
	batch := make(map[module.Module]struct{}, len(mods))
	for _, m := range mods {
		if _, ok := c.submitted[m]; ok {
			return fmt.Errorf("%w: %v", ErrDuplicateSubmission, module.TypeOf(m))
		}
		if _, ok := batch[m]; ok {
			return fmt.Errorf("%w: %v appears twice in one batch", ErrDuplicateSubmission, module.TypeOf(m))
		}
		batch[m] = struct{}{}
	}

	res, err := resolver.Resolve(ctx, mods, c.loadedSet())
	if err != nil {
		return fmt.Errorf("resolving module batch: %w", err)
	}

	var changed []string
	for _, m := range res.Order {
		t := module.TypeOf(m)
		c.submitted[m] = struct{}{}

		_, implicit := res.Implicit[t]
		e := &entry{
			mod:      m,
			desc:     res.Descriptors[t],
			implicit: implicit,
			state:    stateSubmitted,
		}

		// Inject resolved references. Everything a hard declaration needs
		// is already in entries thanks to the topological order; optional
		// targets may arrive later in the batch and are re-bound below.
		for _, dep := range e.desc.Deps {
			b := &binding{dep: dep}
			if target, ok := c.entries[dep.Type]; ok {
				dep.Bind(target.mod)
				b.bound = true
			} else if !dep.Optional {
				return fmt.Errorf("internal: resolved order left %v without %v", t, dep.Type)
			}
			e.bindings = append(e.bindings, b)
		}
		e.state = stateInjected

		if len(e.desc.Provided) > 0 {
			changed = append(changed, c.registerProvider(t, e.desc.Provided)...)
		}
		if col, ok := m.(module.Collector); ok {
			c.subscribeCollector(t, e.desc.Collects)
			c.deliverInitialView(col, e.desc.Collects)
		}

		if cfg, ok := m.(module.Configurable); ok {
			if err := cfg.Configure(ctx); err != nil {
				// Undo this module's partial wiring. Earlier batch members
				// remain loaded, so their bindings and provided values
				// still have to reach the rest of the runtime.
				changed = append(changed, c.dropProvider(t)...)
				c.dropCollector(t)
				c.lateBindOptionals()
				c.propagate(changed)
				return fmt.Errorf("configuring %v: %w", t, err)
			}
		}
		e.state = stateConfigured

		if err := c.anchor.SetValue(t, m); err != nil {
			return fmt.Errorf("internal: storing %v: %w", t, err)
		}
		c.entries[t] = e
		c.order = append(c.order, t)
		logger.Debug("Module loaded.", "type", t.String(), "implicit", implicit)
	}

	// Re-propagate grown value slots to every loaded collector, including
	// ones loaded long before this batch.
	c.lateBindOptionals()
	c.propagate(changed)

	logger.Debug("Load finished.", "loaded_total", len(c.entries))
	return nil
}

// lateBindOptionals binds optional declarations whose target arrived
// after the dependent, in this batch or a previous one. Caller holds mu.
func (c *Core) lateBindOptionals() {
	for _, t := range c.order {
		e := c.entries[t]
		for _, b := range e.bindings {
			if b.bound || !b.dep.Optional {
				continue
			}
			if target, ok := c.entries[b.dep.Type]; ok {
				b.dep.Bind(target.mod)
				b.bound = true
			}
		}
	}
}
