// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/companion-tui/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Companion"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation. Messages are
// immutable once created, except that the content and sources of the most
// recent assistant message may be patched while a fallback response
// completes.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Sources   []Source  `json:"sources,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// Generation time in milliseconds, for assistant messages.
	GenerationMs int64 `json:"generation_ms,omitempty"`
}

// NewMessageID creates a unique message ID.
func NewMessageID() string {
	return "msg_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Preview returns a truncated single-line preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m *Message) Preview(maxLen int) string {
	return util.TruncateString(util.CollapseNewlines(m.Content), maxLen)
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0
}

// =============================================================================
// SOURCE TYPE
// =============================================================================

// Source is one retrieval result cited by an assistant message.
type Source struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	URL     string  `json:"url,omitempty"`
	Snippet string  `json:"snippet,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

// =============================================================================
// REQUEST HISTORY
// =============================================================================

// MaxHistoryTail is the maximum number of prior messages included in an
// outgoing request payload.
const MaxHistoryTail = 8

// HistoryMessage is the trimmed form of a message sent as request context.
type HistoryMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// HistoryTail builds the outgoing request context from the stored history:
// the last max messages, trimmed to role and content. The stored messages
// are never mutated.
func HistoryTail(messages []Message, max int) []HistoryMessage {
	if max <= 0 || len(messages) == 0 {
		return nil
	}
	start := 0
	if len(messages) > max {
		start = len(messages) - max
	}
	tail := make([]HistoryMessage, 0, len(messages)-start)
	for _, m := range messages[start:] {
		tail = append(tail, HistoryMessage{Role: m.Role, Content: m.Content})
	}
	return tail
}
