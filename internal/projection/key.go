// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package projection

import (
	"fmt"
	"reflect"
	"time"
)

// HashFunc is a deterministic structural hash over plain values (maps,
// slices and scalars).
type HashFunc func(v any) string

// KeyFunc computes the identity key of a snapshot.
type KeyFunc func(Snapshot) string

// KeyResolver computes identity keys used to find an element again when the
// store later updates or removes it.
type KeyResolver struct {
	hash HashFunc
}

// NewKeyResolver returns a resolver that hashes identity-less records with hash.
func NewKeyResolver(hash HashFunc) *KeyResolver {
	return &KeyResolver{hash: hash}
}

// Key returns the identity key of s.
//
// A snapshot carrying a store identity is keyed by that identity. A record
// without one is keyed by a hash of its non-list fields, so the key survives
// any change to its nested collections. Two such records with equal scalar
// fields share a key and are treated as the same entity.
func (r *KeyResolver) Key(s Snapshot) string {
	if s.hash != "" {
		return s.hash
	}
	switch s.kind {
	case KindRecord:
		return r.hash(reduce(s))
	case KindList:
		return r.hash(s.Plain())
	default:
		return scalarString(s.scalar)
	}
}

// reduce drops list fields, including scalars holding a slice or array. Nested records with an identity contribute only
// that identity.
func reduce(s Snapshot) map[string]any {
	out := make(map[string]any, len(s.fields))
	for _, f := range s.fields {
		switch f.Value.kind {
		case KindList:
			continue
		case KindRecord:
			if f.Value.hash != "" {
				out[f.Name] = f.Value.hash
			} else {
				out[f.Name] = reduce(f.Value)
			}
		default:
			if isSequence(f.Value.scalar) {
				continue
			}
			out[f.Name] = f.Value.scalar
		}
	}
	return out
}

func isSequence(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return true
	default:
		return false
	}
}

func scalarString(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return v
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
