// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package projection

import (
	"bytes"
	"encoding/json"
	"slices"
)

// SnapshotField is a named member of a record Snapshot.
type SnapshotField struct {
	Name  string
	Value Snapshot
}

// Snapshot is a detached, immutable copy of a projection value. Collections
// are replaced by lists that the engine populates. A Snapshot is never
// modified after it has been published; the With* helpers return copies that
// share every unchanged member.
type Snapshot struct {
	kind   Kind
	scalar any
	fields []SnapshotField
	items  []Snapshot
	hash   string
}

// NewScalar returns a scalar snapshot.
func NewScalar(v any) Snapshot {
	return Snapshot{kind: KindScalar, scalar: v}
}

// NewRecord returns a record snapshot. hash may be empty.
func NewRecord(hash string, fields ...SnapshotField) Snapshot {
	return Snapshot{kind: KindRecord, fields: slices.Clone(fields), hash: hash}
}

// NewList returns a list snapshot holding items.
func NewList(items ...Snapshot) Snapshot {
	if items == nil {
		items = []Snapshot{}
	}
	return Snapshot{kind: KindList, items: items}
}

// Member pairs a field name with a snapshot.
func Member(name string, v Snapshot) SnapshotField {
	return SnapshotField{Name: name, Value: v}
}

func (s Snapshot) Kind() Kind          { return s.kind }
func (s Snapshot) Scalar() any         { return s.scalar }
func (s Snapshot) Hash() string        { return s.hash }
func (s Snapshot) Len() int            { return len(s.items) }
func (s Snapshot) Item(i int) Snapshot { return s.items[i] }

// Items returns a copy of the list members.
func (s Snapshot) Items() []Snapshot {
	return slices.Clone(s.items)
}

// Fields returns a copy of the record members in declaration order.
func (s Snapshot) Fields() []SnapshotField {
	return slices.Clone(s.fields)
}

// Field returns the named record member.
func (s Snapshot) Field(name string) (Snapshot, bool) {
	for _, f := range s.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Snapshot{}, false
}

// WithField returns a copy of the record with name set to v. Field order is
// preserved; a new name is appended.
func (s Snapshot) WithField(name string, v Snapshot) Snapshot {
	fields := make([]SnapshotField, len(s.fields), len(s.fields)+1)
	copy(fields, s.fields)

	replaced := false
	for i := range fields {
		if fields[i].Name == name {
			fields[i].Value = v
			replaced = true
			break
		}
	}
	if !replaced {
		fields = append(fields, SnapshotField{Name: name, Value: v})
	}

	out := s
	out.fields = fields
	return out
}

// MarshalJSON renders records as objects in field order, lists as arrays and
// scalars with their own JSON encoding.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	switch s.kind {
	case KindRecord:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, f := range s.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			name, err := json.Marshal(f.Name)
			if err != nil {
				return nil, err
			}
			buf.Write(name)
			buf.WriteByte(':')
			value, err := f.Value.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(value)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	case KindList:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range s.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			value, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(value)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	default:
		return json.Marshal(s.scalar)
	}
}

// Plain converts the snapshot to maps, slices and scalars. Record identity is
// not included.
func (s Snapshot) Plain() any {
	switch s.kind {
	case KindRecord:
		out := make(map[string]any, len(s.fields))
		for _, f := range s.fields {
			out[f.Name] = f.Value.Plain()
		}
		return out
	case KindList:
		out := make([]any, 0, len(s.items))
		for _, item := range s.items {
			out = append(out, item.Plain())
		}
		return out
	default:
		return s.scalar
	}
}
