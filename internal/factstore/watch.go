// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package factstore

import (
	"slices"
	"sort"

	"github.com/sigil-dev/projector/internal/projection"
)

// watch is one live evaluation of a specification over a given hash. A
// nested watch belongs to the element whose collection created it.
type watch struct {
	spec    *Specification
	given   string
	handler projection.ElementHandler
	elems   map[string]*element
	nextSeq uint64
	closed  bool
}

// element is one delivered match of a watch.
type element struct {
	seq      uint64
	remove   projection.RemoveFunc
	children []*watch
	closed   bool
}

func (w *watch) closeLocked() {
	if w.closed {
		return
	}
	w.closed = true
	for _, e := range w.elems {
		e.closeLocked()
	}
}

func (e *element) closeLocked() {
	if e.closed {
		return
	}
	e.closed = true
	for _, w := range e.children {
		w.closeLocked()
	}
}

func (s *Store) newWatchLocked(spec *Specification, given string, h projection.ElementHandler) *watch {
	w := &watch{spec: spec, given: given, handler: h, elems: make(map[string]*element)}
	s.watches = append(s.watches, w)
	return w
}

// refresh re-evaluates every open watch. Parents are refreshed before the
// watches their elements own. Callers hold deliverMu.
func (s *Store) refresh() {
	s.mu.Lock()
	open := s.watches[:0]
	for _, w := range s.watches {
		if !w.closed {
			open = append(open, w)
		}
	}
	clear(s.watches[len(open):])
	s.watches = open
	ws := slices.Clone(open)
	s.mu.Unlock()

	for _, w := range ws {
		s.refreshWatch(w)
	}
}

type delivery struct {
	elem  *element
	value projection.Value
}

// refreshWatch diffs the current matches of w against what it has delivered,
// then runs removals followed by additions outside the lock.
func (s *Store) refreshWatch(w *watch) {
	s.mu.Lock()
	if w.closed {
		s.mu.Unlock()
		return
	}

	matches := s.matchLocked(w.spec, w.given)
	live := make(map[string]bool, len(matches))
	var added []delivery
	for _, n := range matches {
		live[n.hash] = true
		if _, ok := w.elems[n.hash]; ok {
			continue
		}
		e := &element{seq: w.nextSeq}
		w.nextSeq++
		w.elems[n.hash] = e
		added = append(added, delivery{elem: e, value: s.projectLocked(w.spec.Select, n, e)})
	}

	var removed []*element
	for h, e := range w.elems {
		if live[h] {
			continue
		}
		delete(w.elems, h)
		e.closeLocked()
		removed = append(removed, e)
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i].seq < removed[j].seq })
	s.mu.Unlock()

	for _, e := range removed {
		if e.remove != nil {
			e.remove()
		}
	}
	for _, d := range added {
		remove := w.handler(d.value)

		s.mu.Lock()
		d.elem.remove = remove
		s.mu.Unlock()
	}
}

// matchLocked returns the facts spec selects for given, in storage order.
func (s *Store) matchLocked(spec *Specification, given string) []*node {
	if spec.Match == nil {
		n, ok := s.facts[given]
		if !ok || n.fact.Type != spec.Given {
			return nil
		}
		return []*node{n}
	}

	m := spec.Match
	var out []*node
	for _, h := range s.successors[given] {
		n := s.facts[h]
		if n.fact.Type != m.Type || !n.fact.Refers(m.Role, given) {
			continue
		}
		if s.excludedLocked(n, m.Unless) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// excludedLocked reports whether any condition holds for n.
func (s *Store) excludedLocked(n *node, unless []Condition) bool {
	for _, c := range unless {
		for _, h := range s.successors[n.hash] {
			succ := s.facts[h]
			if succ.fact.Type == c.Type && succ.fact.Refers(c.Role, n.hash) {
				return true
			}
		}
	}
	return false
}

// projectLocked shapes n for delivery. Collections are bound to owner so
// they close with it.
func (s *Store) projectLocked(p Projection, n *node, owner *element) projection.Value {
	if len(p.Fields) == 0 {
		return s.factValueLocked(n)
	}
	fields := make([]projection.Field, 0, len(p.Fields))
	for _, fp := range p.Fields {
		var v projection.Value
		switch {
		case fp.Hash:
			v = projection.ScalarValue(n.hash)
		case fp.Collection != nil:
			v = projection.CollectionValue(&collection{store: s, spec: fp.Collection, given: n.hash, owner: owner})
		default:
			v = projection.ScalarValue(n.fact.Fields[fp.Field])
		}
		fields = append(fields, projection.NamedValue(fp.Name, v))
	}
	return projection.RecordValue("", fields...)
}

// factValueLocked renders a fact as a record with identity: its type, its
// fields in name order, then its predecessors in role order. Single
// predecessors are expanded when stored; lists stay references.
func (s *Store) factValueLocked(n *node) projection.Value {
	f := n.fact
	fields := []projection.Field{projection.NamedValue("type", projection.ScalarValue(f.Type))}

	names := make([]string, 0, len(f.Fields))
	for name := range f.Fields {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fields = append(fields, projection.NamedValue(name, projection.ScalarValue(f.Fields[name])))
	}

	for _, role := range f.Roles() {
		p := f.Predecessors[role]
		if p.Many {
			fields = append(fields, projection.NamedValue(role, projection.ScalarValue(slices.Clone(p.Refs))))
			continue
		}
		ref := p.Refs[0]
		if pred, ok := s.facts[ref.Hash]; ok {
			fields = append(fields, projection.NamedValue(role, s.factValueLocked(pred)))
			continue
		}
		fields = append(fields, projection.NamedValue(role, projection.RecordValue(ref.Hash,
			projection.NamedValue("type", projection.ScalarValue(ref.Type)))))
	}
	return projection.RecordValue(n.hash, fields...)
}

// collection is a nested collection value. Each OnAdded opens a child watch
// owned by the element the collection was projected for.
type collection struct {
	store *Store
	spec  *Specification
	given string
	owner *element
}

// OnAdded delivers current matches to h and keeps it subscribed until the
// owning element is removed or its subscription closes. It is called from
// within element delivery.
func (c *collection) OnAdded(h projection.ElementHandler) {
	s := c.store
	s.mu.Lock()
	if c.owner.closed || s.closed {
		s.mu.Unlock()
		return
	}
	w := s.newWatchLocked(c.spec, c.given, h)
	c.owner.children = append(c.owner.children, w)
	s.mu.Unlock()

	s.refreshWatch(w)
}
