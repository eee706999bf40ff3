// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sigil-dev/projector/internal/factstore"
	"github.com/stretchr/testify/require"
)

// testDir creates a temp directory for a test and removes it on cleanup.
func testDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "projector-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

// testDBPath returns a temp SQLite database path.
func testDBPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(testDir(t), name+".db")
}

func rootFact(identifier string) *factstore.Fact {
	return &factstore.Fact{Type: "Application.Root", Fields: map[string]any{"identifier": identifier}}
}

func itemFact(root *factstore.Fact, createdAt string, size int) *factstore.Fact {
	return &factstore.Fact{
		Type:         "Application.Item",
		Fields:       map[string]any{"createdAt": createdAt, "size": size},
		Predecessors: map[string]factstore.Predecessor{"root": factstore.One(root.Reference())},
	}
}

func descriptionFact(item *factstore.Fact, value string, prior ...*factstore.Fact) *factstore.Fact {
	refs := make([]factstore.Reference, 0, len(prior))
	for _, p := range prior {
		refs = append(refs, p.Reference())
	}
	return &factstore.Fact{
		Type:   "Application.Item.Description",
		Fields: map[string]any{"value": value},
		Predecessors: map[string]factstore.Predecessor{
			"item":  factstore.One(item.Reference()),
			"prior": factstore.Many(refs...),
		},
	}
}
