// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const itemsSpecYAML = `
name: itemsInRoot
given: Application.Root
match:
  type: Application.Item
  role: root
  unless:
    - type: Application.Item.Deleted
      role: item
`

const seedFactsYAML = `
facts:
  - name: root
    type: Application.Root
    fields: {identifier: home}
  - name: first
    type: Application.Item
    fields: {createdAt: "2026-05-01T10:00:00Z"}
    predecessors: {root: root}
  - name: second
    type: Application.Item
    fields: {createdAt: "2026-05-02T10:00:00Z"}
    predecessors: {root: root}
  - type: Application.Item.Deleted
    predecessors: {item: second}
`

// runRoot executes the root command with args in an isolated HOME and
// returns stdout.
func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	root := NewRootCmd()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(new(bytes.Buffer))
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
