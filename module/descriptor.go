package module

import "reflect"

// Descriptor is the snapshot of a module's declarations taken at
// submission time. It is pure introspection data; the runtime derives it
// once and never asks the module again.
type Descriptor struct {
	Type     reflect.Type
	Deps     []Dependency
	Provided []Value
	Collects []string
}

// Describe derives the descriptor for a module instance.
func Describe(m Module) Descriptor {
	d := Descriptor{
		Type: TypeOf(m),
		Deps: m.Dependencies(),
	}
	if p, ok := m.(Provider); ok {
		d.Provided = p.ProvidedValues()
	}
	if c, ok := m.(Collector); ok {
		d.Collects = c.CollectedNames()
	}
	return d
}
