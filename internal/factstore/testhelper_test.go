// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package factstore_test

import (
	"context"
	"sync"
	"testing"

	"github.com/sigil-dev/projector/internal/factstore"
	"github.com/sigil-dev/projector/internal/projection"
	"github.com/stretchr/testify/require"
)

const (
	rootType        = "Application.Root"
	itemType        = "Application.Item"
	itemDeletedType = "Application.Item.Deleted"
	descriptionType = "Application.Item.Description"
	subItemType     = "Application.SubItem"
	subSubItemType  = "Application.SubSubItem"
)

// --- model ---

func rootFact(identifier string) *factstore.Fact {
	return &factstore.Fact{Type: rootType, Fields: map[string]any{"identifier": identifier}}
}

func itemFact(root *factstore.Fact, createdAt string) *factstore.Fact {
	return &factstore.Fact{
		Type:         itemType,
		Fields:       map[string]any{"createdAt": createdAt},
		Predecessors: map[string]factstore.Predecessor{"root": factstore.One(root.Reference())},
	}
}

func deletedFact(item *factstore.Fact) *factstore.Fact {
	return &factstore.Fact{
		Type:         itemDeletedType,
		Predecessors: map[string]factstore.Predecessor{"item": factstore.One(item.Reference())},
	}
}

func descriptionFact(item *factstore.Fact, value string, prior ...*factstore.Fact) *factstore.Fact {
	refs := make([]factstore.Reference, 0, len(prior))
	for _, p := range prior {
		refs = append(refs, p.Reference())
	}
	return &factstore.Fact{
		Type:   descriptionType,
		Fields: map[string]any{"value": value},
		Predecessors: map[string]factstore.Predecessor{
			"item":  factstore.One(item.Reference()),
			"prior": factstore.Many(refs...),
		},
	}
}

func subItemFact(item *factstore.Fact, createdAt string) *factstore.Fact {
	return &factstore.Fact{
		Type:         subItemType,
		Fields:       map[string]any{"createdAt": createdAt},
		Predecessors: map[string]factstore.Predecessor{"item": factstore.One(item.Reference())},
	}
}

func subSubItemFact(subItem *factstore.Fact, id string) *factstore.Fact {
	return &factstore.Fact{
		Type:         subSubItemType,
		Fields:       map[string]any{"id": id},
		Predecessors: map[string]factstore.Predecessor{"subItem": factstore.One(subItem.Reference())},
	}
}

// --- specifications ---

func itemsInRoot() *factstore.Specification {
	return &factstore.Specification{
		Name:  "itemsInRoot",
		Given: rootType,
		Match: &factstore.Match{
			Type:   itemType,
			Role:   "root",
			Unless: []factstore.Condition{{Type: itemDeletedType, Role: "item"}},
		},
	}
}

func descriptionsOfItem() *factstore.Specification {
	return &factstore.Specification{
		Name:  "descriptionsOfItem",
		Given: itemType,
		Match: &factstore.Match{
			Type:   descriptionType,
			Role:   "item",
			Unless: []factstore.Condition{{Type: descriptionType, Role: "prior"}},
		},
	}
}

// detailsOfRoot projects the root itself with three levels of collections.
func detailsOfRoot() *factstore.Specification {
	subSubItems := &factstore.Specification{
		Given:  subItemType,
		Match:  &factstore.Match{Type: subSubItemType, Role: "subItem"},
		Select: factstore.Projection{Fields: []factstore.FieldProjection{{Name: "id", Field: "id"}}},
	}
	subItems := &factstore.Specification{
		Given: itemType,
		Match: &factstore.Match{Type: subItemType, Role: "item"},
		Select: factstore.Projection{Fields: []factstore.FieldProjection{
			{Name: "createdAt", Field: "createdAt"},
			{Name: "subSubItems", Collection: subSubItems},
		}},
	}
	items := &factstore.Specification{
		Given: rootType,
		Match: &factstore.Match{
			Type:   itemType,
			Role:   "root",
			Unless: []factstore.Condition{{Type: itemDeletedType, Role: "item"}},
		},
		Select: factstore.Projection{Fields: []factstore.FieldProjection{
			{Name: "hash", Hash: true},
			{Name: "createdAt", Field: "createdAt"},
			{Name: "subItems", Collection: subItems},
		}},
	}
	return &factstore.Specification{
		Name:  "detailsOfRoot",
		Given: rootType,
		Select: factstore.Projection{Fields: []factstore.FieldProjection{
			{Name: "identifier", Field: "identifier"},
			{Name: "items", Collection: items},
		}},
	}
}

// --- helpers ---

func save(t *testing.T, s *factstore.Store, facts ...*factstore.Fact) {
	t.Helper()
	_, err := s.Save(context.Background(), facts...)
	require.NoError(t, err)
}

// sink records the elements delivered to a top-level handler.
type sink struct {
	mu      sync.Mutex
	added   []projection.Value
	removed []projection.Value
}

func (k *sink) handler(v projection.Value) projection.RemoveFunc {
	k.mu.Lock()
	k.added = append(k.added, v)
	k.mu.Unlock()
	return func() {
		k.mu.Lock()
		k.removed = append(k.removed, v)
		k.mu.Unlock()
	}
}

func (k *sink) Added() []projection.Value {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]projection.Value(nil), k.added...)
}

func (k *sink) Removed() []projection.Value {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]projection.Value(nil), k.removed...)
}

// memSource is a Source holding facts in a slice.
type memSource struct {
	mu      sync.Mutex
	facts   []*factstore.Fact
	loadErr error
	loads   int
	closed  bool
}

func (m *memSource) Load(context.Context) ([]*factstore.Fact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return append([]*factstore.Fact(nil), m.facts...), nil
}

func (m *memSource) Append(_ context.Context, facts []*factstore.Fact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.facts = append(m.facts, facts...)
	return nil
}

func (m *memSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *memSource) Loads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}
