// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"io"
	"os"

	"github.com/sigil-dev/projector/internal/factstore"
	_ "github.com/sigil-dev/projector/internal/factstore/sqlite"
	projerr "github.com/sigil-dev/projector/pkg/errors"
)

// openStore opens the configured fact store. When load is set the durable
// facts are read before returning.
func (a *app) openStore(ctx context.Context, load bool) (*factstore.Store, error) {
	s, err := factstore.Open(a.cfg.StorageConfig(), factstore.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	if load {
		if err := s.Load(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	a.logger.Debug("fact store opened", "backend", a.cfg.Storage.Backend, "path", a.cfg.Storage.Path, "cached", s.Cached())
	return s, nil
}

// importFacts decodes a facts file and saves every fact in it. Predecessors
// may name earlier entries of the file or facts already in s.
func importFacts(ctx context.Context, s *factstore.Store, path string, stdin io.Reader) ([]factstore.NamedFact, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, projerr.Errorf(projerr.CodeCLIInputInvalid, "opening facts file: %w", err)
		}
		defer f.Close()
		r = f
	}

	named, err := factstore.DecodeFacts(r, s.Get)
	if err != nil {
		return nil, err
	}

	facts := make([]*factstore.Fact, 0, len(named))
	for _, nf := range named {
		facts = append(facts, nf.Fact)
	}
	if _, err := s.Save(ctx, facts...); err != nil {
		return nil, err
	}
	return named, nil
}
