// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sigil-dev/projector/internal/projection"
	projerr "github.com/sigil-dev/projector/pkg/errors"
)

// Run shows the live result of m until the user quits or ctx is done. The
// watch is cancelled on return; closing m stays with the caller.
func Run(ctx context.Context, m *projection.Manager, title string, opts ...tea.ProgramOption) error {
	feed := NewFeed(m)
	defer feed.Close()

	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(NewModel(title, feed.C(), m.ClearError), opts...)
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return projerr.Errorf(projerr.CodeCLIInternal, "running terminal view: %w", err)
	}
	return nil
}
