package resolver

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/vk/modkit/internal/ctxlog"
	"github.com/vk/modkit/module"
)

var (
	// ErrDuplicateType reports two submitted modules sharing a type, or a
	// submission whose type is already loaded. A module type is a
	// singleton within one core.
	ErrDuplicateType = errors.New("duplicate module type")

	// ErrMissingDependency reports a required declaration with no matching
	// instance and no default factory.
	ErrMissingDependency = errors.New("required dependency missing")

	// ErrBadDefault reports a default factory returning nil or an
	// instance of the wrong type.
	ErrBadDefault = errors.New("default factory misbehaved")
)

// CycleError is the fatal diagnostic for a dependency cycle. Chain holds
// the types on the in-progress stack from the first occurrence of the
// re-entered type through the re-entry, so the full loop reads start to
// start.
type CycleError struct {
	Chain []reflect.Type
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Chain))
	for i, t := range e.Chain {
		parts[i] = t.String()
	}
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(parts, " -> "))
}

// Result is the outcome of a successful resolution.
type Result struct {
	// Order is a valid initialization order: a permutation of the
	// submitted modules plus any implicitly created defaults, with every
	// dependency strictly before its dependent unless it was already
	// loaded.
	Order []module.Module

	// Implicit holds the modules the resolver itself instantiated through
	// a declaration's default factory, keyed by type.
	Implicit map[reflect.Type]module.Module

	// Descriptors are the per-type snapshots taken at submission time.
	// The runtime reuses them so a module is described exactly once.
	Descriptors map[reflect.Type]module.Descriptor
}

// edge identifies one dependency declaration as a graph edge.
type edge struct {
	from, to reflect.Type
}

// relaxError reports a loop that is not a hard cycle: it closed through at
// least one optional declaration, so resolution can retry with that edge
// carrying no ordering weight.
type relaxError struct {
	cut edge
}

func (e *relaxError) Error() string {
	return fmt.Sprintf("loop relaxable at optional edge %v -> %v", e.cut.from, e.cut.to)
}

// resolution is the mutable working set of one Resolve pass.
type resolution struct {
	existing    map[reflect.Type]module.Module
	pending     map[reflect.Type]module.Module
	descriptors map[reflect.Type]module.Descriptor
	resolved    map[reflect.Type]bool
	inProgress  map[reflect.Type]bool
	stack       []reflect.Type
	order       []module.Module
	implicit    map[reflect.Type]module.Module

	// relaxed holds optional edges stripped of ordering weight after a
	// loop closed through them. The dependent still binds, late, once
	// both sides are loaded.
	relaxed map[edge]bool
}

// Resolve computes an initialization order for newModules against the
// already-loaded set. The loaded set is read, never mutated. Identical
// input (same instances, same submission order) always yields an
// identical order: ties are broken by submission order, and a module's
// declarations are walked in declaration order.
func Resolve(ctx context.Context, newModules []module.Module, existing map[reflect.Type]module.Module) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Resolver starting.", "submitted", len(newModules), "loaded", len(existing))

	// A loop closing through an optional declaration is satisfiable: the
	// optional side binds late once both modules are loaded. Each pass
	// that hits one strips that edge of its ordering weight and retries;
	// the edge set is finite, so this terminates.
	relaxed := make(map[edge]bool)
	for {
		res, err := resolveOnce(newModules, existing, relaxed)
		var relax *relaxError
		if errors.As(err, &relax) {
			logger.Debug("Relaxing optional edge.", "from", relax.cut.from.String(), "to", relax.cut.to.String())
			relaxed[relax.cut] = true
			continue
		}
		if err != nil {
			return nil, err
		}
		logger.Debug("Resolver finished.", "order_len", len(res.Order), "implicit", len(res.Implicit))
		return res, nil
	}
}

// resolveOnce runs a single depth-first pass over a fresh working set.
func resolveOnce(newModules []module.Module, existing map[reflect.Type]module.Module, relaxed map[edge]bool) (*Result, error) {
	r := &resolution{
		existing:    existing,
		pending:     make(map[reflect.Type]module.Module),
		descriptors: make(map[reflect.Type]module.Descriptor),
		resolved:    make(map[reflect.Type]bool),
		inProgress:  make(map[reflect.Type]bool),
		implicit:    make(map[reflect.Type]module.Module),
		relaxed:     relaxed,
	}

	// Derive every descriptor once, rejecting duplicate types up front.
	for _, m := range newModules {
		t := module.TypeOf(m)
		if _, ok := r.pending[t]; ok {
			return nil, fmt.Errorf("%w: %v submitted twice in one batch", ErrDuplicateType, t)
		}
		if _, ok := existing[t]; ok {
			return nil, fmt.Errorf("%w: %v is already loaded", ErrDuplicateType, t)
		}
		r.pending[t] = m
		r.descriptors[t] = module.Describe(m)
	}

	// Modules with no declarations resolve immediately, in submission
	// order; everything else stays pending for the depth-first pass.
	for _, m := range newModules {
		t := module.TypeOf(m)
		if len(r.descriptors[t].Deps) == 0 {
			r.finish(t)
		}
	}

	for _, m := range newModules {
		t := module.TypeOf(m)
		if r.resolved[t] {
			continue
		}
		if err := r.visit(t); err != nil {
			return nil, err
		}
	}

	return &Result{Order: r.order, Implicit: r.implicit, Descriptors: r.descriptors}, nil
}

// visit resolves every declaration of the pending module keyed by t, then
// moves it from in-progress to resolved.
func (r *resolution) visit(t reflect.Type) error {
	r.inProgress[t] = true
	r.stack = append(r.stack, t)

	for _, dep := range r.descriptors[t].Deps {
		if _, ok := r.existing[dep.Type]; ok {
			continue // binds at injection time, no ordering work
		}
		if r.resolved[dep.Type] {
			continue
		}
		if r.inProgress[dep.Type] {
			if dep.Optional {
				// An optional back-edge is not a hard cycle: the
				// dependent simply observes absence until both sides
				// are loaded.
				continue
			}
			return r.closeLoop(dep.Type)
		}
		if _, ok := r.pending[dep.Type]; ok {
			if dep.Optional && r.relaxed[edge{t, dep.Type}] {
				continue
			}
			if err := r.visit(dep.Type); err != nil {
				return err
			}
			continue
		}
		if dep.Optional {
			continue
		}
		if dep.Default == nil {
			return fmt.Errorf("%w: %v requires %v, which was not submitted, is not loaded, and declares no default",
				ErrMissingDependency, t, dep.Type)
		}
		if err := r.instantiateDefault(t, dep); err != nil {
			return err
		}
	}

	r.stack = r.stack[:len(r.stack)-1]
	delete(r.inProgress, t)
	r.finish(t)
	return nil
}

// instantiateDefault creates the fallback instance for an unmet
// declaration, records it as implicitly created and resolves it in place.
func (r *resolution) instantiateDefault(requester reflect.Type, dep module.Dependency) error {
	created := dep.Default()
	if created == nil {
		return fmt.Errorf("%w: default for %v (required by %v) returned nil", ErrBadDefault, dep.Type, requester)
	}
	if got := module.TypeOf(created); got != dep.Type {
		return fmt.Errorf("%w: default for %v (required by %v) produced %v", ErrBadDefault, dep.Type, requester, got)
	}

	r.implicit[dep.Type] = created
	r.pending[dep.Type] = created
	r.descriptors[dep.Type] = module.Describe(created)

	if err := r.visit(dep.Type); err != nil {
		// Name the original requester: the failure is a property of its
		// declaration, not of the implicit module alone.
		return fmt.Errorf("resolving default for %v (required by %v): %w", dep.Type, requester, err)
	}
	return nil
}

// finish moves t into the resolved partition and appends it to the order.
func (r *resolution) finish(t reflect.Type) {
	m := r.pending[t]
	delete(r.pending, t)
	r.resolved[t] = true
	r.order = append(r.order, m)
}

// closeLoop handles a hard declaration pointing back at an in-progress
// module. If the loop's descent passed through an optional declaration
// the whole thing is satisfiable, and that edge is reported for
// relaxation; otherwise it is a genuine dependency cycle.
func (r *resolution) closeLoop(reentered reflect.Type) error {
	start := 0
	for i, t := range r.stack {
		if t == reentered {
			start = i
			break
		}
	}
	chain := make([]reflect.Type, 0, len(r.stack)-start+1)
	chain = append(chain, r.stack[start:]...)
	chain = append(chain, reentered)

	// chain[i] descended into chain[i+1]; if any such step was optional,
	// cut it. The closing edge itself is hard, so it is never a candidate.
	for i := 0; i < len(chain)-1; i++ {
		for _, dep := range r.descriptors[chain[i]].Deps {
			if dep.Optional && dep.Type == chain[i+1] && !r.relaxed[edge{chain[i], chain[i+1]}] {
				return &relaxError{cut: edge{chain[i], chain[i+1]}}
			}
		}
	}
	return &CycleError{Chain: chain}
}
