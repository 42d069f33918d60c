// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/companion-tui/internal/model"
	"github.com/jeranaias/companion-tui/internal/store"
	"github.com/jeranaias/companion-tui/internal/ui/styles"
)

func testModel() Model {
	return Model{
		theme:  styles.NewTheme(),
		scroll: NewScrollState(),
	}
}

func TestScrollStateStartsAtBottom(t *testing.T) {
	s := NewScrollState()
	if !s.AtBottom() {
		t.Error("scroll state should start at the bottom")
	}
	s.atBottom.Store(false)
	if s.AtBottom() {
		t.Error("AtBottom should reflect the stored value")
	}
}

func TestRenderRemainingStates(t *testing.T) {
	m := testModel()

	cases := []struct {
		remaining int
		want      string
	}{
		{store.RemainingUnknown, "limit: ?"},
		{0, "limit wyczerpany"},
		{2, "pozostało: 2"},
		{15, "pozostało: 15"},
	}
	for _, c := range cases {
		m.snap.RemainingQueries = c.remaining
		if got := m.renderRemaining(); !strings.Contains(got, c.want) {
			t.Errorf("remaining=%d: got %q, want substring %q", c.remaining, got, c.want)
		}
	}
}

func TestRenderMessageRevealsVisiblePrefixOnly(t *testing.T) {
	m := testModel()
	msg := model.Message{
		ID:        "msg_anim",
		Role:      model.RoleAssistant,
		Content:   "jeden dwa trzy cztery",
		Timestamp: time.Now(),
	}
	m.snap.AnimatingMessageID = "msg_anim"
	m.snap.VisibleWordCount = 2

	out := m.renderMessage(msg)
	if !strings.Contains(out, "jeden dwa") {
		t.Errorf("revealed words missing: %q", out)
	}
	if strings.Contains(out, "trzy") {
		t.Errorf("unrevealed words leaked: %q", out)
	}
}

func TestRenderMessageShowsSourcesAfterReveal(t *testing.T) {
	m := testModel()
	m.showSources = true
	msg := model.Message{
		ID:        "msg_done",
		Role:      model.RoleAssistant,
		Content:   "gotowe",
		Sources:   []model.Source{{Title: "Artykuł", URL: "https://example.com"}},
		Timestamp: time.Now(),
	}

	out := m.renderMessage(msg)
	if !strings.Contains(out, "Artykuł") {
		t.Errorf("sources missing after reveal: %q", out)
	}

	// While animating, sources stay hidden.
	m.snap.AnimatingMessageID = "msg_done"
	m.snap.VisibleWordCount = 1
	out = m.renderMessage(msg)
	if strings.Contains(out, "Artykuł") {
		t.Errorf("sources shown mid-reveal: %q", out)
	}
}
