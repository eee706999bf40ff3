// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package projection

import "context"

// Query is an opaque query understood by a Store. Managers compare queries
// with == when the dynamic type is comparable, so implementations should be
// pointers. A query of a non-comparable type is treated as new on every Update.
type Query interface {
	QueryName() string
}

// Store is the observation service the engine consumes.
type Store interface {
	// Subscribe starts watching q for the given facts. h is called for every
	// element that currently matches, before Subscribe returns, and for every
	// later addition.
	Subscribe(ctx context.Context, q Query, given []any, h ElementHandler) (Subscription, error)

	// HashOf is a deterministic structural hash. It identifies given facts
	// and keys identity-less records.
	HashOf(v any) string
}

// Subscription is a running watch.
type Subscription interface {
	// Cached reports whether the store's cache already satisfies the query.
	Cached(ctx context.Context) (bool, error)

	// Loaded blocks until the store has fully loaded the query's results.
	Loaded(ctx context.Context) error

	// Close stops the watch. No handler or RemoveFunc registered through it,
	// at any depth, runs after Close returns.
	Close() error
}
