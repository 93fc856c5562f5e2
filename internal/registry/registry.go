package registry

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// ErrOccupied is returned by Set when the key type already holds a value.
// Overwriting requires an explicit Remove first; it never happens silently.
var ErrOccupied = errors.New("key type already occupied")

// Anchor is a heterogeneous store keyed by static type. The zero value is
// not usable; create one with NewAnchor.
type Anchor struct {
	mu      sync.RWMutex
	entries map[reflect.Type]any
	// order preserves insertion order so Collect is stable across calls.
	order []reflect.Type
}

// NewAnchor returns an empty store.
func NewAnchor() *Anchor {
	return &Anchor{
		entries: make(map[reflect.Type]any),
	}
}

// SetValue stores v under the given key type. It rejects an already
// occupied key with ErrOccupied.
func (a *Anchor) SetValue(key reflect.Type, v any) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.entries[key]; ok {
		return fmt.Errorf("%w: %v", ErrOccupied, key)
	}
	a.entries[key] = v
	a.order = append(a.order, key)
	return nil
}

// Value returns the stored value for the key type, if present.
func (a *Anchor) Value(key reflect.Type) (any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	v, ok := a.entries[key]
	return v, ok
}

// RemoveKey deletes the entry for the key type. It reports whether an
// entry existed.
func (a *Anchor) RemoveKey(key reflect.Type) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.entries[key]; !ok {
		return false
	}
	delete(a.entries, key)
	for i, k := range a.order {
		if k == key {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of stored entries.
func (a *Anchor) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entries)
}

// values returns all stored values in insertion order.
func (a *Anchor) values() []any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]any, 0, len(a.order))
	for _, k := range a.order {
		out = append(out, a.entries[k])
	}
	return out
}

// Set stores v under its static type T.
func Set[T any](a *Anchor, v T) error {
	return a.SetValue(reflect.TypeOf((*T)(nil)).Elem(), v)
}

// Get returns the value stored under the key type T. Absence is a normal,
// non-error outcome.
func Get[T any](a *Anchor) (T, bool) {
	v, ok := a.Value(reflect.TypeOf((*T)(nil)).Elem())
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// Remove deletes the entry for key type T, reporting whether one existed.
func Remove[T any](a *Anchor) bool {
	return a.RemoveKey(reflect.TypeOf((*T)(nil)).Elem())
}

// Collect returns, in insertion order, every stored value whose concrete
// type satisfies the capability C. The key type under which a value was
// stored does not matter, only whether the value itself implements C.
func Collect[C any](a *Anchor) []C {
	var out []C
	for _, v := range a.values() {
		if c, ok := v.(C); ok {
			out = append(out, c)
		}
	}
	return out
}

// Defaulter is implemented by knowledge-source key types: value types that
// can produce their own initial instance.
type Defaulter[T any] interface {
	DefaultValue() T
}

// GetOrDefault returns the value stored under T, materializing and storing
// the key type's declared default on first access. The write-on-read is
// idempotent: every subsequent call observes the instance stored by the
// first one.
func GetOrDefault[T Defaulter[T]](a *Anchor) T {
	key := reflect.TypeOf((*T)(nil)).Elem()

	a.mu.Lock()
	defer a.mu.Unlock()

	if v, ok := a.entries[key]; ok {
		return v.(T)
	}
	var zero T
	v := zero.DefaultValue()
	a.entries[key] = v
	a.order = append(a.order, key)
	return v
}
