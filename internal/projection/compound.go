// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package projection

import (
	"context"

	projerr "github.com/sigil-dev/projector/pkg/errors"
)

// NamedQuery is one entry of a compound query. Order is significant: it is
// the order in which errors are reported.
type NamedQuery struct {
	Name  string
	Query Query
}

// CompoundResult aggregates the results of every entry. Data is nil unless
// every entry is ready without error.
type CompoundResult struct {
	Loading bool
	Data    map[string][]Snapshot
	Err     error
}

// Compound runs one Manager per named query over a shared given.
type Compound struct {
	entries  []NamedQuery
	managers []*Manager
}

// NewCompound creates one idle Manager per entry.
func NewCompound(store Store, entries []NamedQuery, opts ...Option) *Compound {
	c := &Compound{
		entries:  append([]NamedQuery(nil), entries...),
		managers: make([]*Manager, len(entries)),
	}
	for i := range entries {
		c.managers[i] = NewManager(store, opts...)
	}
	return c
}

// Update points every entry at the given facts.
func (c *Compound) Update(ctx context.Context, given ...any) error {
	var errs []error
	for i, e := range c.entries {
		if err := c.managers[i].Update(ctx, e.Query, given...); err != nil {
			errs = append(errs, projerr.With(err, projerr.Field("entry", e.Name)))
		}
	}
	return projerr.Join(errs...)
}

// Result aggregates the current entry results.
func (c *Compound) Result() CompoundResult {
	out := CompoundResult{Data: make(map[string][]Snapshot, len(c.entries))}
	for i, e := range c.entries {
		r := c.managers[i].Result()
		out.Loading = out.Loading || r.Loading
		if r.Data == nil {
			out.Data = nil
		} else if out.Data != nil {
			out.Data[e.Name] = r.Data
		}
		if out.Err == nil {
			out.Err = r.Err
		}
	}
	return out
}

// ClearError clears the error of every entry.
func (c *Compound) ClearError() {
	for _, m := range c.managers {
		m.ClearError()
	}
}

// Watch registers fn to receive the aggregate after any entry changes.
func (c *Compound) Watch(fn func(CompoundResult)) func() {
	cancels := make([]func(), 0, len(c.managers))
	for _, m := range c.managers {
		cancels = append(cancels, m.Watch(func(Result) {
			fn(c.Result())
		}))
	}
	return func() {
		for _, cancel := range cancels {
			cancel()
		}
	}
}

// Close tears down every entry.
func (c *Compound) Close() error {
	var errs []error
	for _, m := range c.managers {
		if err := m.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return projerr.Join(errs...)
}
