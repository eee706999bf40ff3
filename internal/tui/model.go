// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package tui renders a live projection result in the terminal.
package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sigil-dev/projector/internal/projection"
)

// ResultMsg carries a new result into the model.
type ResultMsg projection.Result

// feedClosedMsg reports that the feed will deliver nothing more.
type feedClosedMsg struct{}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	countStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)
)

// Model is the bubbletea model for a single watched query.
type Model struct {
	title      string
	results    <-chan projection.Result
	clearError func()
	spinner    spinner.Model
	result     projection.Result
	received   bool
	updates    int
	quitting   bool
}

// NewModel returns a model reading results from ch. clearError, when set, is
// called when the user dismisses an error.
func NewModel(title string, ch <-chan projection.Result, clearError func()) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return Model{
		title:      title,
		results:    ch,
		clearError: clearError,
		spinner:    sp,
	}
}

// Result returns the last result the model received.
func (m Model) Result() projection.Result {
	return m.result
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForResult(m.results))
}

func waitForResult(ch <-chan projection.Result) tea.Cmd {
	return func() tea.Msg {
		r, ok := <-ch
		if !ok {
			return feedClosedMsg{}
		}
		return ResultMsg(r)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "c":
			if m.result.Err != nil && m.clearError != nil {
				m.clearError()
			}
		}
		return m, nil

	case ResultMsg:
		m.result = projection.Result(msg)
		m.received = true
		m.updates++
		return m, waitForResult(m.results)

	case feedClosedMsg:
		m.quitting = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	switch {
	case m.result.Err != nil:
		b.WriteString(errorStyle.Render("error: " + m.result.Err.Error()))
		b.WriteString("\n")
		if m.clearError != nil {
			b.WriteString(dimStyle.Render("c to dismiss"))
			b.WriteString("\n")
		}
	case !m.received || m.result.Loading || !m.result.Ready():
		fmt.Fprintf(&b, "%s waiting for results...\n", m.spinner.View())
	default:
		b.WriteString(countStyle.Render(fmt.Sprintf("%d result(s)", len(m.result.Data))))
		b.WriteString(dimStyle.Render(fmt.Sprintf("  update %d", m.updates)))
		b.WriteString("\n")
		b.WriteString(boxStyle.Render(render(m.result.Data)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("q to quit"))
	return b.String()
}

func render(data []projection.Snapshot) string {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errorStyle.Render(err.Error())
	}
	return string(out)
}
