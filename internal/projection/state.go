// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package projection

import (
	projerr "github.com/sigil-dev/projector/pkg/errors"
)

// CacheState is the initial-data lifecycle of a subscription.
type CacheState int

const (
	StateUninitialized CacheState = iota
	StateLoading
	StateReady
)

func (s CacheState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// validTransitions defines allowed state transitions as an adjacency list.
// Every state may return to uninitialized on teardown.
var validTransitions = map[CacheState]map[CacheState]bool{
	StateUninitialized: {
		StateUninitialized: true,
		StateLoading:       true,
		StateReady:         true,
	},
	StateLoading: {
		StateReady:         true,
		StateUninitialized: true,
	},
	StateReady: {
		StateUninitialized: true,
	},
}

// ValidTransition returns true if transitioning from one state to another is allowed.
func ValidTransition(from, to CacheState) bool {
	allowed, exists := validTransitions[from][to]
	return exists && allowed
}

func transition(from, to CacheState) (CacheState, error) {
	if !ValidTransition(from, to) {
		return from, projerr.Errorf(projerr.CodeProjectionStateInvalid,
			"invalid cache state transition: %s -> %s", from, to)
	}
	return to, nil
}
