package runtime

import (
	"errors"
	"reflect"
	"sync"

	"github.com/vk/modkit/internal/registry"
	"github.com/vk/modkit/module"
)

var (
	// ErrDuplicateSubmission reports a module instance submitted twice.
	// Instances are one-shot: Configure runs once, so resubmitting the
	// same instance (even after unload) is a composition error.
	ErrDuplicateSubmission = errors.New("module instance already submitted")

	// ErrHasDependents reports an unload refused because loaded modules
	// still hold non-optional bindings on the target.
	ErrHasDependents = errors.New("module still has hard dependents")

	// ErrNotLoaded reports an unload of an instance this core does not
	// currently hold.
	ErrNotLoaded = errors.New("module not loaded")
)

// lifecycle states of an entry, for diagnostics.
type state int

const (
	stateSubmitted state = iota
	stateInjected
	stateConfigured
)

func (s state) String() string {
	switch s {
	case stateSubmitted:
		return "submitted"
	case stateInjected:
		return "injected"
	case stateConfigured:
		return "configured"
	default:
		return "unknown"
	}
}

// binding is one dependency declaration of a loaded module plus its
// resolution state.
type binding struct {
	dep   module.Dependency
	bound bool
}

// entry is the core's bookkeeping for one loaded module: the instance,
// its descriptor snapshot, its resolved edges and whether the resolver
// created it implicitly.
type entry struct {
	mod      module.Module
	desc     module.Descriptor
	implicit bool
	state    state
	bindings []*binding
}

// Core owns one anchor and the modules loaded into it.
type Core struct {
	mu        sync.Mutex
	anchor    *registry.Anchor
	entries   map[reflect.Type]*entry
	order     []reflect.Type
	submitted map[module.Module]struct{}

	// provider/collector index, keyed by value-slot name.
	providers  map[string][]providedValue
	collectors map[string][]reflect.Type
}

// New returns an empty core with a fresh anchor.
func New() *Core {
	return &Core{
		anchor:     registry.NewAnchor(),
		entries:    make(map[reflect.Type]*entry),
		submitted:  make(map[module.Module]struct{}),
		providers:  make(map[string][]providedValue),
		collectors: make(map[string][]reflect.Type),
	}
}

// Anchor exposes the read-only query surface. Lookups reflect the most
// recent load/unload synchronously.
func (c *Core) Anchor() *registry.Anchor {
	return c.anchor
}

// Loaded returns the currently loaded modules in load order.
func (c *Core) Loaded() []module.Module {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]module.Module, 0, len(c.order))
	for _, t := range c.order {
		out = append(out, c.entries[t].mod)
	}
	return out
}

// loadedSet snapshots the type index for the resolver. Caller holds mu.
func (c *Core) loadedSet() map[reflect.Type]module.Module {
	out := make(map[reflect.Type]module.Module, len(c.entries))
	for t, e := range c.entries {
		out[t] = e.mod
	}
	return out
}

// hardDependents returns the types of loaded modules holding a bound,
// non-optional declaration on target. Caller holds mu.
func (c *Core) hardDependents(target reflect.Type) []reflect.Type {
	var out []reflect.Type
	for _, t := range c.order {
		e := c.entries[t]
		for _, b := range e.bindings {
			if b.bound && !b.dep.Optional && b.dep.Type == target {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// anyDependents reports whether any loaded module holds a bound
// declaration (hard or optional) on target. Caller holds mu.
func (c *Core) anyDependents(target reflect.Type) bool {
	for _, e := range c.entries {
		for _, b := range e.bindings {
			if b.bound && b.dep.Type == target {
				return true
			}
		}
	}
	return false
}

func (c *Core) dropFromOrder(t reflect.Type) {
	for i, k := range c.order {
		if k == t {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
