// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package sqlite is a durable fact source backed by SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sigil-dev/projector/internal/factstore"
	projerr "github.com/sigil-dev/projector/pkg/errors"
)

// Compile-time interface check.
var _ factstore.Source = (*Source)(nil)

// Source implements factstore.Source with one row per fact. Rows are loaded
// in insertion order so predecessors precede their successors.
type Source struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSource opens (or creates) a SQLite database at dbPath and initialises
// the facts table.
func NewSource(dbPath string) (*Source, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, projerr.Errorf(projerr.CodeFactStoreSourceFailure, "opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, projerr.Errorf(projerr.CodeFactStoreSourceFailure, "pinging sqlite db: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, projerr.Errorf(projerr.CodeFactStoreSourceFailure, "migrating facts table: %w", err)
	}

	return &Source{db: db, logger: slog.Default()}, nil
}

func migrate(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS facts (
	seq  INTEGER PRIMARY KEY AUTOINCREMENT,
	hash TEXT NOT NULL UNIQUE,
	type TEXT NOT NULL,
	body TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_facts_type ON facts(type);
`
	_, err := db.Exec(ddl)
	return err
}

// Load returns every stored fact in insertion order.
func (s *Source) Load(ctx context.Context) ([]*factstore.Fact, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT hash, body FROM facts ORDER BY seq`)
	if err != nil {
		return nil, projerr.Errorf(projerr.CodeFactStoreSourceFailure, "querying facts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*factstore.Fact
	for rows.Next() {
		var hash, body string
		if err := rows.Scan(&hash, &body); err != nil {
			return nil, projerr.Errorf(projerr.CodeFactStoreSourceFailure, "scanning fact: %w", err)
		}
		var f factstore.Fact
		if err := json.Unmarshal([]byte(body), &f); err != nil {
			return nil, projerr.Wrap(err, projerr.CodeFactStoreDecodeInvalid, "decoding stored fact",
				projerr.FieldFactHash(hash))
		}
		if got := f.Hash(); got != hash {
			s.logger.Warn("stored fact hash mismatch", "stored", hash, "computed", got)
		}
		out = append(out, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, projerr.Errorf(projerr.CodeFactStoreSourceFailure, "iterating facts: %w", err)
	}
	return out, nil
}

// Append stores facts in one transaction. Facts already stored are ignored.
func (s *Source) Append(ctx context.Context, facts []*factstore.Fact) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return projerr.Errorf(projerr.CodeFactStoreSourceFailure, "beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const q = `INSERT INTO facts (hash, type, body) VALUES (?, ?, ?) ON CONFLICT(hash) DO NOTHING`
	for _, f := range facts {
		body, err := json.Marshal(f)
		if err != nil {
			return projerr.Errorf(projerr.CodeFactStoreSourceFailure, "marshalling fact: %w", err)
		}
		if _, err := tx.ExecContext(ctx, q, f.Hash(), f.Type, string(body)); err != nil {
			return projerr.Errorf(projerr.CodeFactStoreSourceFailure, "inserting fact: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return projerr.Errorf(projerr.CodeFactStoreSourceFailure, "committing facts: %w", err)
	}
	return nil
}

// Count returns the number of stored facts.
func (s *Source) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM facts`).Scan(&n); err != nil {
		return 0, projerr.Errorf(projerr.CodeFactStoreSourceFailure, "counting facts: %w", err)
	}
	return n, nil
}

// Close closes the underlying database connection.
func (s *Source) Close() error {
	return s.db.Close()
}
