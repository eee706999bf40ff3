// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package projection

// MutateFunc applies fn to the list at the given path of the current result.
type MutateFunc func(at Path, fn ListUpdater)

// Binder wires store notifications to result-list mutations at every depth.
type Binder struct {
	keys *KeyResolver
}

// NewBinder returns a Binder that identifies elements with keys.
func NewBinder(keys *KeyResolver) *Binder {
	return &Binder{keys: keys}
}

// Handler returns the element handler for the list at path at. Each delivered
// element is extracted, appended unless its key is already present, and then
// bound so its own collections feed the lists below it. The returned
// RemoveFunc removes the element by key from the same list.
func (b *Binder) Handler(at Path, mutate MutateFunc) ElementHandler {
	return func(raw Value) RemoveFunc {
		snap := Extract(raw)
		key := b.keys.Key(snap)
		mutate(at, AppendUnique(snap, key, b.keys.Key))
		b.Bind(raw, key, at, mutate)
		return func() {
			mutate(at, RemoveKey(key, b.keys.Key))
		}
	}
}

// Bind registers handlers on every collection field of v, whose own entry has
// key in the list at path at. Only direct fields are watched.
func (b *Binder) Bind(v Value, key string, at Path, mutate MutateFunc) {
	if v.Kind != KindRecord {
		return
	}
	for _, f := range v.Fields {
		if f.Value.Kind != KindCollection || f.Value.Collection == nil {
			continue
		}
		f.Value.Collection.OnAdded(b.Handler(at.Child(key, f.Name), mutate))
	}
}
