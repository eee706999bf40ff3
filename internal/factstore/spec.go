// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package factstore

import (
	"fmt"

	"github.com/sigil-dev/projector/internal/projection"
)

// Compile-time interface check.
var _ projection.Query = (*Specification)(nil)

// Specification selects facts related to a given fact and shapes each match.
// Specifications are compared by pointer: build one per query and reuse it.
type Specification struct {
	Name   string     `yaml:"name"`
	Given  string     `yaml:"given"`
	Match  *Match     `yaml:"match,omitempty"`
	Select Projection `yaml:"select,omitempty"`
}

// Match selects successors of the given with Type whose Role points at the
// given. A candidate is excluded while any Unless condition holds for it.
type Match struct {
	Type   string      `yaml:"type"`
	Role   string      `yaml:"role"`
	Unless []Condition `yaml:"unless,omitempty"`
}

// Condition holds for a candidate when a fact of Type exists whose Role
// points at the candidate.
type Condition struct {
	Type string `yaml:"type"`
	Role string `yaml:"role"`
}

// Projection shapes a matched fact. With no fields the fact itself is
// projected as a record carrying its hash.
type Projection struct {
	Fields []FieldProjection `yaml:"fields,omitempty"`
}

// FieldProjection is one named output field. Exactly one of Field, Hash and
// Collection is set.
type FieldProjection struct {
	Name       string         `yaml:"name"`
	Field      string         `yaml:"field,omitempty"`
	Hash       bool           `yaml:"hash,omitempty"`
	Collection *Specification `yaml:"collection,omitempty"`
}

// QueryName implements projection.Query.
func (s *Specification) QueryName() string {
	if s.Name == "" {
		return s.Given
	}
	return s.Name
}

// ResultType is the type of the facts this specification yields.
func (s *Specification) ResultType() string {
	if s.Match == nil {
		return s.Given
	}
	return s.Match.Type
}

// Validate checks s and every nested collection.
func (s *Specification) Validate() error {
	return s.validate(s.QueryName())
}

func (s *Specification) validate(path string) error {
	if s.Given == "" {
		return invalidSpec(path, "given type is required")
	}
	if m := s.Match; m != nil {
		if m.Type == "" || m.Role == "" {
			return invalidSpec(path, "match needs a type and a role")
		}
		for i, c := range m.Unless {
			if c.Type == "" || c.Role == "" {
				return invalidSpec(path, fmt.Sprintf("unless[%d] needs a type and a role", i))
			}
		}
	}

	seen := make(map[string]bool, len(s.Select.Fields))
	for _, f := range s.Select.Fields {
		if f.Name == "" {
			return invalidSpec(path, "projected field needs a name")
		}
		if seen[f.Name] {
			return invalidSpec(path, "duplicate projected field "+f.Name)
		}
		seen[f.Name] = true

		set := 0
		if f.Field != "" {
			set++
		}
		if f.Hash {
			set++
		}
		if f.Collection != nil {
			set++
		}
		if set != 1 {
			return invalidSpec(path, "field "+f.Name+" must set exactly one of field, hash, collection")
		}

		if c := f.Collection; c != nil {
			if c.Given != s.ResultType() {
				return invalidSpec(path, fmt.Sprintf("collection %s is given %s, want %s", f.Name, c.Given, s.ResultType()))
			}
			if err := c.validate(path + "." + f.Name); err != nil {
				return err
			}
		}
	}
	return nil
}
