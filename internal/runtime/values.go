package runtime

import (
	"reflect"

	"github.com/vk/modkit/module"
)

// providedValue is one module's contribution to a named value slot.
type providedValue struct {
	from  reflect.Type
	value any
}

// registerProvider indexes a module's provided values. Returns the slot
// names whose provider set changed. Caller holds mu.
func (c *Core) registerProvider(t reflect.Type, provided []module.Value) []string {
	var changed []string
	for _, v := range provided {
		c.providers[v.Name] = append(c.providers[v.Name], providedValue{from: t, value: v.Value})
		changed = append(changed, v.Name)
	}
	return changed
}

// dropProvider removes every contribution of t, returning the slot names
// that changed. Caller holds mu.
func (c *Core) dropProvider(t reflect.Type) []string {
	var changed []string
	for name, vals := range c.providers {
		kept := vals[:0]
		for _, pv := range vals {
			if pv.from == t {
				continue
			}
			kept = append(kept, pv)
		}
		if len(kept) != len(vals) {
			changed = append(changed, name)
			if len(kept) == 0 {
				delete(c.providers, name)
			} else {
				c.providers[name] = kept
			}
		}
	}
	return changed
}

// subscribeCollector records a collector's slot subscriptions. Caller
// holds mu.
func (c *Core) subscribeCollector(t reflect.Type, names []string) {
	for _, name := range names {
		c.collectors[name] = append(c.collectors[name], t)
	}
}

// dropCollector removes t from every subscription list. Caller holds mu.
func (c *Core) dropCollector(t reflect.Type) {
	for name, subs := range c.collectors {
		kept := subs[:0]
		for _, st := range subs {
			if st == t {
				continue
			}
			kept = append(kept, st)
		}
		if len(kept) == 0 {
			delete(c.collectors, name)
		} else {
			c.collectors[name] = kept
		}
	}
}

// view assembles the current values for a slot name, in provider load
// order. Caller holds mu.
func (c *Core) view(name string) []any {
	vals := c.providers[name]
	if len(vals) == 0 {
		return nil
	}
	out := make([]any, len(vals))
	for i, pv := range vals {
		out[i] = pv.value
	}
	return out
}

// deliverInitialView pushes the current view of every subscribed slot to
// a freshly loading collector. Caller holds mu.
func (c *Core) deliverInitialView(col module.Collector, names []string) {
	for _, name := range names {
		col.UpdateCollected(name, c.view(name))
	}
}

// propagate recomputes the views of every loaded collector subscribed to
// one of the changed slots. A collector subscribed to several changed
// slots is updated once per slot. Caller holds mu.
func (c *Core) propagate(changed []string) {
	seen := make(map[string]bool, len(changed))
	for _, name := range changed {
		if seen[name] {
			continue
		}
		seen[name] = true
		view := c.view(name)
		for _, t := range c.collectors[name] {
			e, ok := c.entries[t]
			if !ok {
				continue
			}
			if col, ok := e.mod.(module.Collector); ok {
				col.UpdateCollected(name, view)
			}
		}
	}
}
