// Package resolver computes a safe initialization order for a batch of
// submitted modules via depth-first resolution of their dependency
// declarations.
//
// The working set is partitioned three ways during a run: resolved
// (order finalized), pending (has declarations left to satisfy) and
// in-progress (currently on the search stack). A module sits in exactly
// one partition at a time. A loop made entirely of required declarations
// is a dependency cycle and is reported with the full chain of types on
// the stack; a loop containing an optional declaration is satisfiable, so
// that edge loses its ordering weight and the dependent binds late.
// Resolution is pure in-memory graph work: it performs no I/O and assumes
// the caller serializes calls touching the same loaded set.
package resolver
