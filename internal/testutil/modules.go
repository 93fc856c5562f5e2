// Package testutil provides scripted module types for graph and lifecycle
// tests. Module identity is a Go type, so randomized graph tests draw
// their nodes from a fixed pool of synthetic types instead of minting
// types at runtime.
package testutil

import (
	"context"
	"reflect"

	"github.com/vk/modkit/module"
)

// Script is the shared behavior of every synthetic module type. Tests set
// its fields to shape declarations and observe lifecycle traffic.
type Script struct {
	DepList      []module.Dependency
	ConfigureErr error

	ConfigureCalls int
	UnloadCalls    int
}

func (s *Script) Dependencies() []module.Dependency { return s.DepList }

func (s *Script) Configure(ctx context.Context) error {
	s.ConfigureCalls++
	return s.ConfigureErr
}

func (s *Script) Unload(ctx context.Context) error {
	s.UnloadCalls++
	return nil
}

// The synthetic type pool. Each is a distinct registry key.

type M0 struct{ Script }
type M1 struct{ Script }
type M2 struct{ Script }
type M3 struct{ Script }
type M4 struct{ Script }
type M5 struct{ Script }
type M6 struct{ Script }
type M7 struct{ Script }
type M8 struct{ Script }
type M9 struct{ Script }

// PoolTypes lists the pool in index order.
var PoolTypes = []reflect.Type{
	reflect.TypeOf((**M0)(nil)).Elem(),
	reflect.TypeOf((**M1)(nil)).Elem(),
	reflect.TypeOf((**M2)(nil)).Elem(),
	reflect.TypeOf((**M3)(nil)).Elem(),
	reflect.TypeOf((**M4)(nil)).Elem(),
	reflect.TypeOf((**M5)(nil)).Elem(),
	reflect.TypeOf((**M6)(nil)).Elem(),
	reflect.TypeOf((**M7)(nil)).Elem(),
	reflect.TypeOf((**M8)(nil)).Elem(),
	reflect.TypeOf((**M9)(nil)).Elem(),
}

// NewFromPool returns a fresh instance of pool type i.
func NewFromPool(i int) module.Module {
	switch i {
	case 0:
		return &M0{}
	case 1:
		return &M1{}
	case 2:
		return &M2{}
	case 3:
		return &M3{}
	case 4:
		return &M4{}
	case 5:
		return &M5{}
	case 6:
		return &M6{}
	case 7:
		return &M7{}
	case 8:
		return &M8{}
	case 9:
		return &M9{}
	default:
		panic("testutil: pool index out of range")
	}
}

// ScriptOf exposes the Script embedded in a pool module for tests that
// need to set declarations or read lifecycle counters.
func ScriptOf(m module.Module) *Script {
	return reflect.ValueOf(m).Elem().FieldByName("Script").Addr().Interface().(*Script)
}

// DependOn appends a required declaration on pool type target to the
// module's script.
func DependOn(m module.Module, target reflect.Type, opts ...module.Option) {
	d := module.Dependency{Type: target}
	for _, opt := range opts {
		opt(&d)
	}
	s := ScriptOf(m)
	s.DepList = append(s.DepList, d)
}
