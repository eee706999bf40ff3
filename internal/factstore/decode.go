// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package factstore

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	projerr "github.com/sigil-dev/projector/pkg/errors"
)

// DecodeSpecification reads one YAML specification and validates it.
func DecodeSpecification(r io.Reader) (*Specification, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var spec Specification
	if err := dec.Decode(&spec); err != nil {
		return nil, projerr.Wrap(err, projerr.CodeFactStoreDecodeInvalid, "decoding specification")
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// NamedFact is a decoded fact with the local name it was given in its file.
type NamedFact struct {
	Name string
	Fact *Fact
}

type factFile struct {
	Facts []factEntry `yaml:"facts"`
}

type factEntry struct {
	Name         string             `yaml:"name"`
	Type         string             `yaml:"type"`
	Fields       map[string]any     `yaml:"fields"`
	Predecessors map[string]refList `yaml:"predecessors"`
}

// refList is a predecessor value in a fact file: one name or hash, or a
// sequence of them.
type refList struct {
	names []string
	many  bool
}

func (r *refList) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		r.names = []string{n.Value}
		return nil
	case yaml.SequenceNode:
		r.many = true
		return n.Decode(&r.names)
	default:
		return fmt.Errorf("line %d: predecessor must be a name or a list of names", n.Line)
	}
}

// LookupFunc resolves a fact hash that is not named in the same file.
type LookupFunc func(hash string) (*Fact, error)

// DecodeFacts reads a YAML fact batch. Predecessors name earlier facts of the
// same file, or hashes resolved through lookup.
func DecodeFacts(r io.Reader, lookup LookupFunc) ([]NamedFact, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file factFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, projerr.Wrap(err, projerr.CodeFactStoreDecodeInvalid, "decoding facts")
	}

	local := make(map[string]Reference, len(file.Facts))
	out := make([]NamedFact, 0, len(file.Facts))
	for i, e := range file.Facts {
		f := &Fact{Type: e.Type, Fields: e.Fields}
		if len(e.Predecessors) > 0 {
			f.Predecessors = make(map[string]Predecessor, len(e.Predecessors))
		}
		for role, rl := range e.Predecessors {
			refs := make([]Reference, 0, len(rl.names))
			for _, name := range rl.names {
				ref, err := resolveRef(name, local, lookup)
				if err != nil {
					return nil, projerr.With(err, projerr.Field("fact_index", i), projerr.Field("role", role))
				}
				refs = append(refs, ref)
			}
			if rl.many {
				f.Predecessors[role] = Many(refs...)
			} else {
				f.Predecessors[role] = One(refs[0])
			}
		}
		if err := f.validate(); err != nil {
			return nil, projerr.With(err, projerr.Field("fact_index", i))
		}

		if e.Name != "" {
			if _, dup := local[e.Name]; dup {
				return nil, projerr.Errorf(projerr.CodeFactStoreDecodeInvalid, "duplicate fact name %q", e.Name)
			}
			local[e.Name] = f.Reference()
		}
		out = append(out, NamedFact{Name: e.Name, Fact: f})
	}
	return out, nil
}

func resolveRef(name string, local map[string]Reference, lookup LookupFunc) (Reference, error) {
	if ref, ok := local[name]; ok {
		return ref, nil
	}
	if lookup == nil {
		return Reference{}, projerr.Errorf(projerr.CodeFactStoreDecodeInvalid, "unknown fact %q", name)
	}
	f, err := lookup(name)
	if err != nil {
		return Reference{}, err
	}
	return f.Reference(), nil
}
