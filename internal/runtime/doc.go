// Package runtime is the orchestrator that owns a typed registry anchor
// and drives module loading and unloading.
//
// A Core accepts batches of module instances, hands them to the resolver
// together with the already-loaded set, then walks the returned order:
// inject bound references, wire provided/collected values, run the
// one-time Configure hook, store the module in the anchor. Unloading
// reverses that while refusing to orphan hard dependents and
// garbage-collecting implicitly created defaults nobody needs anymore.
//
// Load and Unload are serialized by an internal mutex; the anchor's read
// surface stays safe for concurrent lookups between mutations.
package runtime
