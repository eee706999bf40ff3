// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package projection

// Extract converts a live value into a detached snapshot. Collections become
// empty lists regardless of what the store has already delivered for them;
// their elements arrive through the Binder. The store identity is carried over.
func Extract(v Value) Snapshot {
	switch v.Kind {
	case KindRecord:
		fields := make([]SnapshotField, 0, len(v.Fields))
		for _, f := range v.Fields {
			fields = append(fields, SnapshotField{Name: f.Name, Value: Extract(f.Value)})
		}
		return Snapshot{kind: KindRecord, fields: fields, hash: v.Hash}
	case KindCollection:
		return NewList()
	default:
		return Snapshot{kind: KindScalar, scalar: v.Scalar, hash: v.Hash}
	}
}
