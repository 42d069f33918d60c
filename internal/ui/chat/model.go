// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the bubbletea chat view. It consumes the
// engine only through store snapshots and orchestrator methods; all
// conversation state lives in the store, never in the view.
package chat

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/companion-tui/internal/chat"
	"github.com/jeranaias/companion-tui/internal/config"
	"github.com/jeranaias/companion-tui/internal/store"
	"github.com/jeranaias/companion-tui/internal/ui/styles"
)

// ScrollState is shared between the view and the reveal scheduler: the
// scheduler auto-scrolls on a tick only while the user sits at the bottom
// of the transcript.
type ScrollState struct {
	atBottom atomic.Bool
}

// NewScrollState starts at the bottom.
func NewScrollState() *ScrollState {
	s := &ScrollState{}
	s.atBottom.Store(true)
	return s
}

// AtBottom reports the current scroll position.
func (s *ScrollState) AtBottom() bool {
	return s.atBottom.Load()
}

// =============================================================================
// MESSAGES
// =============================================================================

// StoreChangedMsg carries a fresh snapshot from a store mutation into the
// update loop.
type StoreChangedMsg struct {
	Snapshot store.Snapshot
}

// ScrollToBottomMsg is sent by the reveal scheduler's scroll hook.
type ScrollToBottomMsg struct{}

// suggestionsMsg delivers starter questions for the empty view.
type suggestionsMsg []string

// =============================================================================
// MODEL
// =============================================================================

// Model is the bubbletea model for the chat view.
type Model struct {
	orch   *chat.Orchestrator
	store  *store.Store
	theme  *styles.Theme
	scroll *ScrollState

	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	snap        store.Snapshot
	suggestions []string
	showDebug   bool
	showSources bool
	width       int
	height      int
	ready       bool
}

// New creates the chat view.
func New(orch *chat.Orchestrator, st *store.Store, scroll *ScrollState, cfg *config.Config) Model {
	input := textarea.New()
	input.Placeholder = "Zadaj pytanie..."
	input.CharLimit = 2000
	input.SetHeight(1)
	input.ShowLineNumbers = false
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	theme := styles.NewTheme()
	sp.Style = theme.Spinner

	return Model{
		orch:        orch,
		store:       st,
		theme:       theme,
		scroll:      scroll,
		input:       input,
		spinner:     sp,
		snap:        st.Snapshot(),
		showDebug:   cfg.UI.ShowDebugPanel,
		showSources: cfg.UI.ShowSources,
	}
}

// Init primes the rate limit and fetches starter suggestions.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.loadSuggestionsCmd(),
		m.primeRateLimitCmd(),
	)
}

func (m Model) loadSuggestionsCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return suggestionsMsg(m.orch.LoadSuggestions(ctx))
	}
}

func (m Model) primeRateLimitCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		m.orch.PrimeRateLimit(ctx)
		return nil
	}
}

// rebuildRenderer sizes the markdown renderer to the viewport.
func (m *Model) rebuildRenderer() {
	width := m.width - 4
	if width < 20 {
		width = 20
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err == nil {
		m.renderer = renderer
	}
}
