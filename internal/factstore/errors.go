// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package factstore

import (
	"errors"

	projerr "github.com/sigil-dev/projector/pkg/errors"
)

// Sentinel errors for store operations.
// These errors can be checked using errors.Is() for classification.
var (
	// ErrNotFound indicates the requested fact does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates a fact, specification or given is malformed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrClosed indicates the store has been closed.
	ErrClosed = errors.New("store closed")
)

func invalidFact(msg string) error {
	return projerr.Wrap(ErrInvalidInput, projerr.CodeFactStoreFactInvalid, msg)
}

func invalidSpec(name, msg string) error {
	return projerr.Wrap(ErrInvalidInput, projerr.CodeFactStoreSpecInvalid, msg, projerr.FieldQuery(name))
}

func notFound(hash string) error {
	return projerr.Wrap(ErrNotFound, projerr.CodeFactStoreFactNotFound, "fact not found", projerr.FieldFactHash(hash))
}

func closedErr() error {
	return projerr.Wrap(ErrClosed, projerr.CodeFactStoreClosed, "store is closed")
}
