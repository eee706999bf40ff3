// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package projection

// SameList exposes sameList for structural-sharing assertions in tests.
var SameList = sameList
