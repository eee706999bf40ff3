// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package projection

// Kind classifies projection values and snapshots.
type Kind int

const (
	KindScalar Kind = iota
	KindRecord
	KindCollection // live values only
	KindList       // snapshots only
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindRecord:
		return "record"
	case KindCollection:
		return "collection"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// RemoveFunc is invoked by the store when a previously delivered element
// leaves the result.
type RemoveFunc func()

// ElementHandler receives one raw element from the store and returns the
// callback the store will call when that element is removed. The store calls
// the handler strictly before the matching RemoveFunc.
type ElementHandler func(Value) RemoveFunc

// Collection is a live handle to the elements of a nested query.
type Collection interface {
	// OnAdded registers h for every current and future element. The store
	// unregisters it when the owning subscription closes or the owning
	// element is removed.
	OnAdded(h ElementHandler)
}

// Field is a named member of a record Value.
type Field struct {
	Name  string
	Value Value
}

// Value is a live projection value as classified by the store adapter.
// Only the member matching Kind is meaningful.
type Value struct {
	Kind       Kind
	Scalar     any
	Fields     []Field
	Collection Collection

	// Hash is the content-addressed identity the store attached to a fact,
	// or empty.
	Hash string
}

// ScalarValue wraps a leaf value.
func ScalarValue(v any) Value {
	return Value{Kind: KindScalar, Scalar: v}
}

// RecordValue builds a record. hash may be empty.
func RecordValue(hash string, fields ...Field) Value {
	return Value{Kind: KindRecord, Fields: fields, Hash: hash}
}

// CollectionValue wraps a live collection handle.
func CollectionValue(c Collection) Value {
	return Value{Kind: KindCollection, Collection: c}
}

// NamedValue pairs a field name with its value.
func NamedValue(name string, v Value) Field {
	return Field{Name: name, Value: v}
}
