// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StoreChangedMsg:
		m.snap = msg.Snapshot
		m.refreshViewport()
		return m, nil

	case ScrollToBottomMsg:
		m.viewport.GotoBottom()
		m.scroll.atBottom.Store(true)
		return m, nil

	case suggestionsMsg:
		m.suggestions = msg
		m.refreshViewport()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m.updateComponents(msg)
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.Resize(msg.Width, msg.Height)

	inputHeight := 3
	chromeHeight := 3 // header + status bar + error line
	vpHeight := msg.Height - inputHeight - chromeHeight
	if vpHeight < 3 {
		vpHeight = 3
	}

	if !m.ready {
		m.viewport = newViewport(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = vpHeight
	}
	m.input.SetWidth(msg.Width - 4)
	m.rebuildRenderer()
	m.refreshViewport()
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.orch.Close()
		return m, tea.Quit

	case "esc":
		m.orch.Cancel()
		return m, nil

	case "ctrl+n":
		m.orch.NewConversation()
		m.input.Reset()
		return m, nil

	case "ctrl+d":
		m.showDebug = !m.showDebug
		m.refreshViewport()
		return m, nil

	case "enter":
		text := m.input.Value()
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		m.orch.Send(text)
		m.input.Reset()
		m.viewport.GotoBottom()
		m.scroll.atBottom.Store(true)
		return m, nil

	case "pgup", "pgdown", "up", "down":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		m.scroll.atBottom.Store(m.viewport.AtBottom())
		return m, cmd
	}

	// Digit shortcuts pick a suggestion while the conversation is empty.
	if len(m.snap.Messages) == 0 && m.input.Value() == "" {
		if n, err := strconv.Atoi(msg.String()); err == nil && n >= 1 && n <= len(m.suggestions) {
			m.orch.Send(m.suggestions[n-1])
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	m.scroll.atBottom.Store(m.viewport.AtBottom())

	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// refreshViewport re-renders the transcript and keeps the view pinned to
// the bottom when the user was already there.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	wasAtBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript())
	if wasAtBottom {
		m.viewport.GotoBottom()
	}
	m.scroll.atBottom.Store(m.viewport.AtBottom())
}
