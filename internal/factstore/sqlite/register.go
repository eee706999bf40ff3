// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"os"
	"path/filepath"

	"github.com/sigil-dev/projector/internal/factstore"
	projerr "github.com/sigil-dev/projector/pkg/errors"
)

// defaultFile is the database file used when the configured path is a
// directory or empty.
const defaultFile = "facts.db"

func init() {
	factstore.RegisterBackend("sqlite", newSource)
}

func newSource(path string) (factstore.Source, error) {
	dbPath := resolvePath(path)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, projerr.Errorf(projerr.CodeFactStoreSourceFailure, "creating database directory: %w", err)
	}
	src, err := NewSource(dbPath)
	if err != nil {
		return nil, err
	}
	return src, nil
}

func resolvePath(path string) string {
	switch {
	case path == "":
		return defaultFile
	case filepath.Ext(path) == "":
		return filepath.Join(path, defaultFile)
	default:
		return path
	}
}
