// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package factstore is a content-addressed fact graph with live
// specification subscriptions. It is the observation service the projection
// engine reconciles against.
package factstore

import (
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/sigil-dev/projector/internal/projection"
)

// Reference names a fact by type and content hash.
type Reference struct {
	Type string `json:"type" yaml:"type"`
	Hash string `json:"hash" yaml:"hash"`
}

// Predecessor is the value of one predecessor role: a single reference, or a
// list of references when Many is set. An empty list is valid.
type Predecessor struct {
	Refs []Reference
	Many bool
}

// One returns a single-valued predecessor.
func One(ref Reference) Predecessor {
	return Predecessor{Refs: []Reference{ref}}
}

// Many returns a list-valued predecessor.
func Many(refs ...Reference) Predecessor {
	return Predecessor{Refs: slices.Clone(refs), Many: true}
}

// MarshalJSON renders a single reference as an object and a list as an array.
func (p Predecessor) MarshalJSON() ([]byte, error) {
	if p.Many {
		refs := p.Refs
		if refs == nil {
			refs = []Reference{}
		}
		return json.Marshal(refs)
	}
	if len(p.Refs) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(p.Refs[0])
}

// UnmarshalJSON accepts a reference object or an array of references.
func (p *Predecessor) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	if strings.HasPrefix(trimmed, "[") {
		var refs []Reference
		if err := json.Unmarshal(b, &refs); err != nil {
			return err
		}
		*p = Many(refs...)
		return nil
	}
	var ref Reference
	if err := json.Unmarshal(b, &ref); err != nil {
		return err
	}
	*p = One(ref)
	return nil
}

// Fact is an immutable record of the graph. Two facts with the same type,
// fields and predecessors are the same fact.
type Fact struct {
	Type         string
	Fields       map[string]any
	Predecessors map[string]Predecessor
}

// Hash returns the content address of f.
func (f *Fact) Hash() string {
	return HashOf(f.canonical())
}

// Reference returns the reference to f.
func (f *Fact) Reference() Reference {
	return Reference{Type: f.Type, Hash: f.Hash()}
}

// Refers reports whether the role of f points at hash.
func (f *Fact) Refers(role, hash string) bool {
	p, ok := f.Predecessors[role]
	if !ok {
		return false
	}
	for _, r := range p.Refs {
		if r.Hash == hash {
			return true
		}
	}
	return false
}

// Roles returns the predecessor role names of f in sorted order.
func (f *Fact) Roles() []string {
	return slices.Sorted(maps.Keys(f.Predecessors))
}

func (f *Fact) canonical() map[string]any {
	fields := f.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	preds := make(map[string]Predecessor, len(f.Predecessors))
	maps.Copy(preds, f.Predecessors)
	return map[string]any{
		"type":         f.Type,
		"fields":       fields,
		"predecessors": preds,
	}
}

// MarshalJSON renders f in its canonical form.
func (f *Fact) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.canonical())
}

// UnmarshalJSON decodes the canonical form written by MarshalJSON.
func (f *Fact) UnmarshalJSON(b []byte) error {
	var raw struct {
		Type         string                 `json:"type"`
		Fields       map[string]any         `json:"fields"`
		Predecessors map[string]Predecessor `json:"predecessors"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	f.Type = raw.Type
	f.Fields = raw.Fields
	f.Predecessors = raw.Predecessors
	return nil
}

func (f *Fact) validate() error {
	if strings.TrimSpace(f.Type) == "" {
		return invalidFact("fact type is required")
	}
	for role, p := range f.Predecessors {
		if role == "" {
			return invalidFact("predecessor role is required")
		}
		if !p.Many && len(p.Refs) != 1 {
			return invalidFact("predecessor " + role + " must have exactly one reference")
		}
		for _, r := range p.Refs {
			if r.Hash == "" || r.Type == "" {
				return invalidFact("predecessor " + role + " has an incomplete reference")
			}
		}
	}
	if _, err := json.Marshal(f.canonical()); err != nil {
		return invalidFact("fact fields are not serializable: " + err.Error())
	}
	return nil
}

// HashOf returns the content address of v. Facts and references hash to
// their fact hash; snapshots with identity to that identity; any other value
// to the SHA-512 of its JSON encoding.
func HashOf(v any) string {
	switch x := v.(type) {
	case *Fact:
		return x.Hash()
	case Fact:
		return x.Hash()
	case Reference:
		return x.Hash
	case *Reference:
		return x.Hash
	case projection.Snapshot:
		if x.Hash() != "" {
			return x.Hash()
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		// Unserializable values fall back to their type and printed form.
		b = fmt.Appendf(nil, "%T:%v", v, v)
	}
	sum := sha512.Sum512(b)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// referenceOf resolves a subscription given to a reference.
func referenceOf(v any) (Reference, bool) {
	switch x := v.(type) {
	case *Fact:
		if x == nil {
			return Reference{}, false
		}
		return x.Reference(), true
	case Fact:
		return x.Reference(), true
	case Reference:
		return x, x.Hash != ""
	case *Reference:
		if x == nil {
			return Reference{}, false
		}
		return *x, x.Hash != ""
	default:
		return Reference{}, false
	}
}
