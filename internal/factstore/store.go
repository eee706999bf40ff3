// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package factstore

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/sigil-dev/projector/internal/projection"
	projerr "github.com/sigil-dev/projector/pkg/errors"
)

// Compile-time interface checks.
var (
	_ projection.Store        = (*Store)(nil)
	_ projection.Subscription = (*subscription)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSource backs the store with durable storage. The store starts cold.
func WithSource(src Source) Option {
	return func(s *Store) { s.source = src }
}

// node is a stored fact with its precomputed hash.
type node struct {
	fact *Fact
	hash string
}

// Store is an in-memory fact graph. Subscriptions deliver current matches
// synchronously and then every change caused by Save or the first load.
type Store struct {
	logger *slog.Logger
	source Source

	// deliverMu serializes everything that invokes subscription handlers, so
	// a subscription observes changes one at a time and in order.
	deliverMu sync.Mutex

	mu         sync.Mutex
	facts      map[string]*node
	order      []string
	successors map[string][]string
	watches    []*watch
	loaded     bool
	closed     bool
}

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		logger:     slog.Default(),
		facts:      make(map[string]*node),
		successors: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HashOf implements projection.Store.
func (s *Store) HashOf(v any) string {
	return HashOf(v)
}

// Save stores facts and notifies subscriptions of the resulting changes.
// Saving a fact that is already stored is a no-op.
func (s *Store) Save(ctx context.Context, facts ...*Fact) ([]Reference, error) {
	refs := make([]Reference, 0, len(facts))
	for _, f := range facts {
		if f == nil {
			return nil, invalidFact("fact is nil")
		}
		if err := f.validate(); err != nil {
			return nil, err
		}
		refs = append(refs, f.Reference())
	}

	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, closedErr()
	}

	if s.source != nil {
		if err := s.source.Append(ctx, facts); err != nil {
			return nil, projerr.Wrap(err, projerr.CodeFactStoreSourceFailure, "appending facts")
		}
	}

	s.mu.Lock()
	added := 0
	for _, f := range facts {
		if s.insertLocked(f) {
			added++
		}
	}
	s.mu.Unlock()

	if added > 0 {
		s.logger.Debug("facts saved", "count", added)
		s.refresh()
	}
	return refs, nil
}

func (s *Store) insertLocked(f *Fact) bool {
	h := f.Hash()
	if _, ok := s.facts[h]; ok {
		return false
	}
	n := &node{fact: cloneFact(f), hash: h}
	s.facts[h] = n
	s.order = append(s.order, h)

	seen := make(map[string]bool)
	for _, role := range f.Roles() {
		for _, ref := range f.Predecessors[role].Refs {
			if seen[ref.Hash] {
				continue
			}
			seen[ref.Hash] = true
			s.successors[ref.Hash] = append(s.successors[ref.Hash], h)
		}
	}
	return true
}

func cloneFact(f *Fact) *Fact {
	out := &Fact{
		Type:         f.Type,
		Fields:       maps.Clone(f.Fields),
		Predecessors: make(map[string]Predecessor, len(f.Predecessors)),
	}
	for role, p := range f.Predecessors {
		out.Predecessors[role] = Predecessor{Refs: slices.Clone(p.Refs), Many: p.Many}
	}
	return out
}

// Get returns the fact with hash.
func (s *Store) Get(hash string) (*Fact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.facts[hash]
	if !ok {
		return nil, notFound(hash)
	}
	return cloneFact(n.fact), nil
}

// Facts returns the stored facts of typ, or all facts when typ is empty, in
// the order they were stored.
func (s *Store) Facts(typ string) []*Fact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Fact, 0, len(s.order))
	for _, h := range s.order {
		n := s.facts[h]
		if typ != "" && n.fact.Type != typ {
			continue
		}
		out = append(out, cloneFact(n.fact))
	}
	return out
}

// Cached reports whether every durable fact is in memory. A store without a
// source is always cached.
func (s *Store) Cached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source == nil || s.loaded
}

// Load pulls every fact from the source once and delivers the resulting
// changes. Later calls return immediately.
func (s *Store) Load(ctx context.Context) error {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return closedErr()
	}
	if s.source == nil || s.loaded {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	facts, err := s.source.Load(ctx)
	if err != nil {
		return projerr.Wrap(err, projerr.CodeFactStoreSourceFailure, "loading facts")
	}

	s.mu.Lock()
	added := 0
	for _, f := range facts {
		if s.insertLocked(f) {
			added++
		}
	}
	s.loaded = true
	s.mu.Unlock()

	s.logger.Debug("facts loaded", "count", added)
	s.refresh()
	return nil
}

// Subscribe starts a live watch of the specification q over the single given
// fact. Current matches are delivered to h before Subscribe returns.
func (s *Store) Subscribe(_ context.Context, q projection.Query, given []any, h projection.ElementHandler) (projection.Subscription, error) {
	spec, ok := q.(*Specification)
	if !ok || spec == nil {
		return nil, projerr.Wrap(ErrInvalidInput, projerr.CodeFactStoreSpecInvalid, "query is not a specification")
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if len(given) != 1 {
		return nil, invalidSpec(spec.QueryName(), "specification takes exactly one given")
	}
	ref, ok := referenceOf(given[0])
	if !ok {
		return nil, invalidSpec(spec.QueryName(), "given is not a fact or reference")
	}
	if ref.Type != spec.Given {
		return nil, invalidSpec(spec.QueryName(), "given is a "+ref.Type+", want "+spec.Given)
	}
	if h == nil {
		return nil, invalidSpec(spec.QueryName(), "handler is required")
	}

	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, closedErr()
	}
	w := s.newWatchLocked(spec, ref.Hash, h)
	s.mu.Unlock()

	s.logger.Debug("subscription opened", "query", spec.QueryName(), "given", ref.Hash)
	s.refreshWatch(w)
	return &subscription{store: s, w: w}, nil
}

// Close closes every subscription and the source.
func (s *Store) Close() error {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for _, w := range s.watches {
		w.closeLocked()
	}
	s.watches = nil
	s.mu.Unlock()

	if s.source != nil {
		return s.source.Close()
	}
	return nil
}

// subscription is the handle returned by Subscribe.
type subscription struct {
	store *Store
	w     *watch
}

func (sub *subscription) Cached(context.Context) (bool, error) {
	return sub.store.Cached(), nil
}

func (sub *subscription) Loaded(ctx context.Context) error {
	return sub.store.Load(ctx)
}

// Close stops the watch and every nested watch. No handler of this
// subscription runs after Close returns.
func (sub *subscription) Close() error {
	s := sub.store
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	sub.w.closeLocked()
	s.mu.Unlock()
	return nil
}
