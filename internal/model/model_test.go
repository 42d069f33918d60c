// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
)

func TestNewMessageIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewMessageID()
		if !strings.HasPrefix(id, "msg_") {
			t.Errorf("expected msg_ prefix, got %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestPreview(t *testing.T) {
	m := Message{Content: "first line\nsecond line"}
	got := m.Preview(50)
	if strings.Contains(got, "\n") {
		t.Errorf("preview should be single-line, got %q", got)
	}

	long := Message{Content: strings.Repeat("ą", 40)}
	got = long.Preview(10)
	if len([]rune(got)) != 10 {
		t.Errorf("expected 10 runes, got %d (%q)", len([]rune(got)), got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected ... suffix, got %q", got)
	}
}

func TestHistoryTail(t *testing.T) {
	var messages []Message
	for i := 0; i < 12; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		messages = append(messages, Message{
			ID:      NewMessageID(),
			Role:    role,
			Content: strings.Repeat("x", i+1),
			Sources: []Source{{ID: "e1"}},
		})
	}

	tail := HistoryTail(messages, MaxHistoryTail)
	if len(tail) != MaxHistoryTail {
		t.Fatalf("expected %d messages, got %d", MaxHistoryTail, len(tail))
	}
	if tail[0].Content != messages[4].Content {
		t.Errorf("tail should start at message 4")
	}
	if tail[len(tail)-1].Content != messages[11].Content {
		t.Errorf("tail should end at the last message")
	}

	// The stored slice is untouched.
	if len(messages) != 12 || messages[0].Sources == nil {
		t.Errorf("stored history was mutated")
	}
}

func TestHistoryTailShort(t *testing.T) {
	messages := []Message{
		{Role: RoleUser, Content: "hi"},
	}
	tail := HistoryTail(messages, MaxHistoryTail)
	if len(tail) != 1 {
		t.Fatalf("expected 1 message, got %d", len(tail))
	}
	if tail[0].Role != RoleUser || tail[0].Content != "hi" {
		t.Errorf("unexpected tail %+v", tail[0])
	}

	if got := HistoryTail(nil, MaxHistoryTail); got != nil {
		t.Errorf("expected nil tail for empty history, got %v", got)
	}
	if got := HistoryTail(messages, 0); got != nil {
		t.Errorf("expected nil tail for max=0, got %v", got)
	}
}

func TestDebugStageLabel(t *testing.T) {
	if StageKeywords.Label() != "Keywords & expansion" {
		t.Errorf("unexpected label %q", StageKeywords.Label())
	}
	if DebugStage("unknown").Label() != "unknown" {
		t.Errorf("unknown stages should pass through")
	}
}
