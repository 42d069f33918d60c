// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme holds the styled components for the companion TUI.
type Theme struct {
	Width  int
	Height int

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style

	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	SourceLine      lipgloss.Style
	Timestamp       lipgloss.Style

	InputContainer lipgloss.Style
	Suggestion     lipgloss.Style
	SuggestionKey  lipgloss.Style

	StatusBar      lipgloss.Style
	RemainingOK    lipgloss.Style
	RemainingLow   lipgloss.Style
	RemainingOut   lipgloss.Style
	Spinner        lipgloss.Style
	ErrorBanner    lipgloss.Style
	DebugPanel     lipgloss.Style
	DebugStepDone  lipgloss.Style
	DebugStepLabel lipgloss.Style
}

// NewTheme builds the default theme.
func NewTheme() *Theme {
	return &Theme{
		Header: lipgloss.NewStyle().
			Background(SurfaceDim).
			Padding(0, 1),
		HeaderTitle: lipgloss.NewStyle().
			Foreground(Cyan).
			Bold(true),

		UserBubble: lipgloss.NewStyle().
			Foreground(Cyan).
			Bold(true),
		AssistantBubble: lipgloss.NewStyle().
			Foreground(TextPrimary),
		SourceLine: lipgloss.NewStyle().
			Foreground(TextMuted),
		Timestamp: lipgloss.NewStyle().
			Foreground(TextMuted),

		InputContainer: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Purple).
			Padding(0, 1),
		Suggestion: lipgloss.NewStyle().
			Foreground(TextMuted),
		SuggestionKey: lipgloss.NewStyle().
			Foreground(Cyan).
			Bold(true),

		StatusBar: lipgloss.NewStyle().
			Background(SurfaceDim).
			Foreground(TextMuted).
			Padding(0, 1),
		RemainingOK: lipgloss.NewStyle().
			Foreground(Emerald),
		RemainingLow: lipgloss.NewStyle().
			Foreground(Amber),
		RemainingOut: lipgloss.NewStyle().
			Foreground(Rose).
			Bold(true),
		Spinner: lipgloss.NewStyle().
			Foreground(Purple),
		ErrorBanner: lipgloss.NewStyle().
			Foreground(Rose).
			Bold(true).
			Padding(0, 1),
		DebugPanel: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(TextMuted).
			Padding(0, 1),
		DebugStepDone: lipgloss.NewStyle().
			Foreground(Emerald),
		DebugStepLabel: lipgloss.NewStyle().
			Foreground(TextMuted),
	}
}

// Resize updates layout-dependent dimensions.
func (t *Theme) Resize(width, height int) {
	t.Width = width
	t.Height = height
	t.Header = t.Header.Width(width)
	t.StatusBar = t.StatusBar.Width(width)
}
