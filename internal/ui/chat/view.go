// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"

	"github.com/jeranaias/companion-tui/internal/format"
	"github.com/jeranaias/companion-tui/internal/model"
)

func newViewport(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.MouseWheelEnabled = true
	return vp
}

// View renders the full frame.
func (m Model) View() string {
	if !m.ready {
		return "Ładowanie..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteByte('\n')
	b.WriteString(m.viewport.View())
	b.WriteByte('\n')

	if m.snap.LastError != "" {
		b.WriteString(m.theme.ErrorBanner.Render(m.snap.LastError))
		b.WriteByte('\n')
	}

	b.WriteString(m.theme.InputContainer.Render(m.input.View()))
	b.WriteByte('\n')
	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m Model) renderHeader() string {
	return m.theme.Header.Render(m.theme.HeaderTitle.Render("Companion"))
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

func (m Model) renderTranscript() string {
	if len(m.snap.Messages) == 0 {
		return m.renderEmptyState()
	}

	var sections []string
	for _, msg := range m.snap.Messages {
		sections = append(sections, m.renderMessage(msg))
	}
	if m.showDebug && len(m.snap.DebugSteps) > 0 {
		sections = append(sections, m.renderDebugPanel())
	}
	if m.snap.Loading && !m.snap.Streaming {
		sections = append(sections, m.spinner.View()+" "+m.theme.Timestamp.Render("szukam odpowiedzi..."))
	}
	return strings.Join(sections, "\n\n")
}

func (m Model) renderEmptyState() string {
	var b strings.Builder
	b.WriteString(m.theme.Suggestion.Render("Zacznij od jednego z pytań:"))
	b.WriteString("\n\n")
	for i, s := range m.suggestions {
		b.WriteString(fmt.Sprintf("  %s %s\n",
			m.theme.SuggestionKey.Render(fmt.Sprintf("[%d]", i+1)),
			m.theme.Suggestion.Render(s)))
	}
	return b.String()
}

func (m Model) renderMessage(msg model.Message) string {
	label := msg.Role.DisplayName()
	timestamp := m.theme.Timestamp.Render(msg.Timestamp.Format("15:04"))

	switch msg.Role {
	case model.RoleUser:
		return m.theme.UserBubble.Render(label) + " " + timestamp + "\n" + msg.Content

	case model.RoleAssistant:
		content := msg.Content
		if msg.ID == m.snap.AnimatingMessageID {
			content = format.VisiblePrefix(content, m.snap.VisibleWordCount)
		}
		body := m.renderMarkdown(content)

		var b strings.Builder
		b.WriteString(m.theme.AssistantBubble.Render(label) + " " + timestamp)
		if msg.GenerationMs > 0 {
			b.WriteString(" " + m.theme.Timestamp.Render(fmt.Sprintf("(%.1fs)", float64(msg.GenerationMs)/1000)))
		}
		b.WriteByte('\n')
		b.WriteString(body)
		if m.showSources && len(msg.Sources) > 0 && msg.ID != m.snap.AnimatingMessageID {
			b.WriteByte('\n')
			b.WriteString(m.renderSources(msg.Sources))
		}
		return b.String()
	}
	return msg.Content
}

// renderMarkdown runs glamour over the (possibly partial) answer text.
// Falls back to plain text when the renderer is unavailable.
func (m Model) renderMarkdown(content string) string {
	if m.renderer == nil || content == "" {
		return content
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}

func (m Model) renderSources(sources []model.Source) string {
	var b strings.Builder
	b.WriteString(m.theme.SourceLine.Render("Źródła:"))
	for i, src := range sources {
		line := fmt.Sprintf("  [%d] %s", i+1, src.Title)
		if src.URL != "" {
			line += " - " + src.URL
		}
		b.WriteByte('\n')
		b.WriteString(m.theme.SourceLine.Render(line))
	}
	return b.String()
}

// =============================================================================
// DEBUG PANEL
// =============================================================================

func (m Model) renderDebugPanel() string {
	var b strings.Builder
	for i, step := range m.snap.DebugSteps {
		if i > 0 {
			b.WriteByte('\n')
		}
		line := m.theme.DebugStepDone.Render("+") + " " +
			m.theme.DebugStepLabel.Render(step.Step.Label())
		if step.DurationMs > 0 {
			line += m.theme.DebugStepLabel.Render(fmt.Sprintf(" %dms", step.DurationMs))
		}
		if step.ResultCount > 0 {
			line += m.theme.DebugStepLabel.Render(fmt.Sprintf(" (%d wyników)", step.ResultCount))
		}
		if step.Model != "" {
			line += m.theme.DebugStepLabel.Render(" " + step.Model)
		}
		b.WriteString(line)
	}
	return m.theme.DebugPanel.Render(b.String())
}

// =============================================================================
// STATUS BAR
// =============================================================================

func (m Model) renderStatusBar() string {
	var parts []string

	switch {
	case m.snap.Streaming:
		parts = append(parts, m.spinner.View()+" odpowiedź nadchodzi")
	case m.snap.Loading:
		parts = append(parts, m.spinner.View()+" wysyłanie")
	default:
		parts = append(parts, "gotowy")
	}

	parts = append(parts, m.renderRemaining())
	parts = append(parts, "enter wyślij · esc przerwij · ctrl+n nowa · ctrl+d debug · ctrl+c wyjdź")

	return m.theme.StatusBar.Render(strings.Join(parts, "  |  "))
}

func (m Model) renderRemaining() string {
	remaining := m.snap.RemainingQueries
	switch {
	case remaining < 0:
		return m.theme.Timestamp.Render("limit: ?")
	case remaining == 0:
		return m.theme.RemainingOut.Render("limit wyczerpany")
	case remaining <= 3:
		return m.theme.RemainingLow.Render(fmt.Sprintf("pozostało: %d", remaining))
	default:
		return m.theme.RemainingOK.Render(fmt.Sprintf("pozostało: %d", remaining))
	}
}
