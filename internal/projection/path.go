// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package projection

import (
	"slices"
	"strings"
)

// Step selects the element with Key in the current list, then its Field list.
type Step struct {
	Key   string
	Field string
}

// Path addresses a list in the result tree. The empty path is the root list.
type Path []Step

// Child returns a new path extended by one step. p is not modified.
func (p Path) Child(key, field string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, Step{Key: key, Field: field})
}

func (p Path) String() string {
	if len(p) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, s := range p {
		b.WriteByte('/')
		b.WriteString(s.Key)
		b.WriteByte('.')
		b.WriteString(s.Field)
	}
	return b.String()
}

// ListUpdater derives a new list from the current one. It must not modify
// its argument.
type ListUpdater func([]Snapshot) []Snapshot

// UpdateAt applies fn to the list addressed by at and returns the new root.
// Every element matched by a step is rewritten; lists and records off the
// path are shared with the input. When fn changes nothing the input list is
// returned as is.
func UpdateAt(list []Snapshot, at Path, fn ListUpdater, keyOf KeyFunc) []Snapshot {
	if len(at) == 0 {
		return fn(list)
	}

	step := at[0]
	var out []Snapshot
	for i, elem := range list {
		if keyOf(elem) != step.Key {
			continue
		}
		child, ok := elem.Field(step.Field)
		if !ok || child.kind != KindList {
			continue
		}
		updated := UpdateAt(child.items, at[1:], fn, keyOf)
		if sameList(updated, child.items) {
			continue
		}
		if out == nil {
			out = slices.Clone(list)
		}
		out[i] = elem.WithField(step.Field, NewList(updated...))
	}
	if out == nil {
		return list
	}
	return out
}

// AppendUnique appends s unless an element with the same key is present.
func AppendUnique(s Snapshot, key string, keyOf KeyFunc) ListUpdater {
	return func(list []Snapshot) []Snapshot {
		for _, elem := range list {
			if keyOf(elem) == key {
				return list
			}
		}
		out := make([]Snapshot, len(list), len(list)+1)
		copy(out, list)
		return append(out, s)
	}
}

// RemoveKey drops every element with key.
func RemoveKey(key string, keyOf KeyFunc) ListUpdater {
	return func(list []Snapshot) []Snapshot {
		out := make([]Snapshot, 0, len(list))
		for _, elem := range list {
			if keyOf(elem) != key {
				out = append(out, elem)
			}
		}
		if len(out) == len(list) {
			return list
		}
		return out
	}
}

// sameList reports whether a and b are the same slice, not merely equal.
func sameList(a, b []Snapshot) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return (a == nil) == (b == nil)
	}
	return &a[0] == &b[0]
}
