// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package projection materializes the live result of a query as an immutable
// tree and keeps it synchronized with add and remove notifications pushed by
// an observation service.
//
// A store hands the engine classified Values. Each element is converted to a
// detached Snapshot, given an identity key, and appended to the result list.
// Collection fields inside an element are watched recursively; every nested
// change is addressed by a Path of (key, field) steps from the root list and
// applied with UpdateAt, which copies only the path from the root to the
// changed list. Published lists are never mutated in place.
//
// Manager owns one subscription for a (query, given) pair and exposes the
// result in the loading/data/error form consumed by a host view. Compound runs
// several managers over the same given and aggregates their results.
package projection
