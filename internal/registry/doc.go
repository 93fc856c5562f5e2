// Package registry implements the typed heterogeneous store at the heart
// of the runtime: one value per static key type, scoped to a single owning
// core (the "anchor").
//
// The store itself is type-erased, a map from reflect.Type to an opaque
// value, with a generic, type-safe accessor layer on top. It holds no
// dependency logic whatsoever; ordering and lifecycle live in the resolver
// and runtime packages. Reads are safe concurrently once loading has
// settled; concurrent writers on the same key must be serialized by the
// caller, which in practice is the runtime core's load/unload mutex.
package registry
