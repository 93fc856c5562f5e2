// Package module defines the authoring contract for pluggable components.
//
// A component participates in the runtime by implementing Module and, through
// it, declaring what it needs from its siblings before it is submitted for
// loading. Declarations are explicit (a method returning them) rather than
// discovered by field reflection, so the runtime never inspects a module's
// internals. The optional capability interfaces (Configurable, Provider,
// Collector, Unloadable) are detected by the runtime with plain type
// assertions at load time.
package module

import (
	"context"
	"reflect"
)

// Module is the contract every pluggable component implements. The runtime
// identifies a module by its concrete type: one instance per type may be
// loaded into a given core at a time.
type Module interface {
	// Dependencies returns the module's dependency declarations. The
	// returned set must be stable: it is read once at submission time and
	// resolution assumes it does not change afterwards.
	Dependencies() []Dependency
}

// Configurable is implemented by modules that need a one-time setup hook.
// Configure runs after the module's dependencies have been injected and
// before the module is stored in the registry. It is never invoked twice.
type Configurable interface {
	Configure(ctx context.Context) error
}

// Unloadable is implemented by modules that need teardown when removed
// from a running core.
type Unloadable interface {
	Unload(ctx context.Context) error
}

// Value is a named slot that provider modules publish and collector
// modules aggregate.
type Value struct {
	Name  string
	Value any
}

// Provider is implemented by modules that publish named values for other
// modules to collect.
type Provider interface {
	Module
	ProvidedValues() []Value
}

// Collector is implemented by modules that aggregate provided values.
// UpdateCollected is invoked with the full current view for a subscribed
// name whenever the provider set for that name changes, including when it
// shrinks to empty on unload.
type Collector interface {
	Module
	CollectedNames() []string
	UpdateCollected(name string, values []any)
}

// TypeOf returns the registry key type for a module instance: its concrete
// runtime type.
func TypeOf(m Module) reflect.Type {
	return reflect.TypeOf(m)
}
