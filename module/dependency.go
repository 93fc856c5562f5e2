package module

import (
	"fmt"
	"reflect"
)

// Dependency declares that a module requires (or can make use of) another
// module of a given type. A declaration resolves to exactly one concrete
// module instance; how that instance is found is the resolver's business.
type Dependency struct {
	// Type is the required module type, the key the resolver matches on.
	Type reflect.Type

	// Optional marks the dependency as best-effort: resolution binds it
	// when an instance exists and otherwise leaves it unbound. Optional
	// declarations never trigger default instantiation, and unloading an
	// optionally-depended-on module does not drag its dependents down.
	Optional bool

	// Default, when non-nil, constructs a fallback instance if no module
	// of Type was submitted or previously loaded. The resolver owns the
	// created instance and records it as implicitly created.
	Default func() Module

	bind func(Module)
}

// Option adjusts a dependency declaration at construction.
type Option func(*Dependency)

// WithDefault attaches a fallback factory invoked when no instance of the
// required type is available.
func WithDefault(factory func() Module) Option {
	return func(d *Dependency) { d.Default = factory }
}

// AsOptional marks the declaration optional.
func AsOptional() Option {
	return func(d *Dependency) { d.Optional = true }
}

// Needs declares a dependency on a module of type T and wires injection
// into target. The runtime calls the binding with the resolved instance
// before the dependent's Configure hook runs, and with nil when the
// depended-on module is unloaded out from under an optional dependent.
func Needs[T Module](target *T, opts ...Option) Dependency {
	d := Dependency{
		Type: reflect.TypeOf((*T)(nil)).Elem(),
		bind: func(m Module) {
			if m == nil {
				var zero T
				*target = zero
				return
			}
			*target = m.(T)
		},
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// Requires declares a dependency on a module of type T without injection.
// The dependent looks the instance up through the registry when it needs
// it; the declaration still participates in ordering and unload safety.
func Requires[T Module](opts ...Option) Dependency {
	d := Dependency{Type: reflect.TypeOf((*T)(nil)).Elem()}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// Bind delivers the resolved instance to the declaring module. A nil
// instance clears a previous binding. No-op for declarations made with
// Requires.
func (d Dependency) Bind(m Module) {
	if d.bind != nil {
		d.bind(m)
	}
}

func (d Dependency) String() string {
	if d.Optional {
		return fmt.Sprintf("optional %v", d.Type)
	}
	return fmt.Sprintf("%v", d.Type)
}
