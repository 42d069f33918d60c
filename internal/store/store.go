// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds the single source of truth for a conversation:
// message history, loading/streaming flags, last error, rate-limit counter,
// telemetry steps, follow-up suggestions, and reveal-animation progress.
// Every other component reads and writes this state only through the
// Store's action methods.
package store

import (
	"sync"
	"time"

	"github.com/jeranaias/companion-tui/internal/model"
)

// RemainingUnknown is the rate-limit counter value before the server has
// reported one. The client never computes a remaining value itself.
const RemainingUnknown = -1

// Persister stores the message list durably. Only messages are persisted;
// everything else in the Store is session-transient.
type Persister interface {
	SaveMessages([]model.Message) error
	Clear() error
}

// Snapshot is an immutable copy of the conversation state. Observers and
// renderers work exclusively from snapshots so no reader can see a
// half-applied mutation.
type Snapshot struct {
	Messages           []model.Message
	Loading            bool
	Streaming          bool
	LastError          string
	RemainingQueries   int
	DebugSteps         []model.DebugStep
	FollowUps          []string
	AnimatingMessageID string
	VisibleWordCount   int
}

// Store is the conversation state store. All mutations are atomic under a
// single mutex; observers are notified after each mutation with the
// resulting snapshot, outside the lock.
type Store struct {
	mu sync.Mutex

	messages      []model.Message
	loading       bool
	streaming     bool
	lastError     string
	remaining     int
	debugSteps    []model.DebugStep
	followUps     []string
	animatingID   string
	visibleWords  int
	lastTimestamp time.Time

	persister Persister
	subs      map[int]func(Snapshot)
	nextSub   int
}

// New creates an empty store. persister may be nil for a purely in-memory
// session.
func New(persister Persister) *Store {
	return &Store{
		remaining: RemainingUnknown,
		persister: persister,
		subs:      make(map[int]func(Snapshot)),
	}
}

// Subscribe registers an observer called with a snapshot after every
// mutation. The returned function unsubscribes.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Snapshot returns a consistent copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Loading:            s.loading,
		Streaming:          s.streaming,
		LastError:          s.lastError,
		RemainingQueries:   s.remaining,
		AnimatingMessageID: s.animatingID,
		VisibleWordCount:   s.visibleWords,
	}
	if len(s.messages) > 0 {
		snap.Messages = make([]model.Message, len(s.messages))
		copy(snap.Messages, s.messages)
	}
	if len(s.debugSteps) > 0 {
		snap.DebugSteps = make([]model.DebugStep, len(s.debugSteps))
		copy(snap.DebugSteps, s.debugSteps)
	}
	if len(s.followUps) > 0 {
		snap.FollowUps = make([]string, len(s.followUps))
		copy(snap.FollowUps, s.followUps)
	}
	return snap
}

// mutate runs fn under the lock, then notifies observers outside it.
func (s *Store) mutate(fn func()) {
	s.mu.Lock()
	fn()
	snap := s.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snap)
	}
}

// persistLocked saves the message list. Called with the lock held so saves
// are ordered exactly like mutations. A failed save costs durability, not
// the live conversation.
func (s *Store) persistLocked() {
	if s.persister == nil {
		return
	}
	msgs := make([]model.Message, len(s.messages))
	copy(msgs, s.messages)
	_ = s.persister.SaveMessages(msgs)
}

// =============================================================================
// MESSAGE ACTIONS
// =============================================================================

// AddMessage appends a message, assigning a fresh id when none is set and
// a monotonic non-decreasing timestamp. Returns the message id.
func (s *Store) AddMessage(msg model.Message) string {
	var id string
	s.mutate(func() {
		if msg.ID == "" {
			msg.ID = model.NewMessageID()
		}
		msg.Timestamp = s.nextTimestampLocked()
		id = msg.ID
		s.messages = append(s.messages, msg)
		s.persistLocked()
	})
	return id
}

// nextTimestampLocked returns a wall-clock timestamp bumped forward when
// the clock has not advanced since the previous message.
func (s *Store) nextTimestampLocked() time.Time {
	ts := time.Now()
	if !ts.After(s.lastTimestamp) {
		ts = s.lastTimestamp.Add(time.Millisecond)
	}
	s.lastTimestamp = ts
	return ts
}

// UpdateLastMessage patches the content (and sources, when given) of the
// most recent message. Used only while completing a fallback response.
func (s *Store) UpdateLastMessage(content string, sources []model.Source) {
	s.mutate(func() {
		if len(s.messages) == 0 {
			return
		}
		last := &s.messages[len(s.messages)-1]
		last.Content = content
		if sources != nil {
			last.Sources = sources
		}
		s.persistLocked()
	})
}

// ClearMessages removes all messages, stored copy included.
func (s *Store) ClearMessages() {
	s.mutate(func() {
		s.messages = nil
		if s.persister != nil {
			_ = s.persister.Clear()
		}
	})
}

// RestoreMessages seeds the store from durable storage at session start.
// The restored list is not re-persisted.
func (s *Store) RestoreMessages(messages []model.Message) {
	s.mutate(func() {
		s.messages = make([]model.Message, len(messages))
		copy(s.messages, messages)
		for _, m := range messages {
			if m.Timestamp.After(s.lastTimestamp) {
				s.lastTimestamp = m.Timestamp
			}
		}
	})
}

// =============================================================================
// FLAG AND STATUS ACTIONS
// =============================================================================

// SetLoading sets the request-in-flight flag.
func (s *Store) SetLoading(loading bool) {
	s.mutate(func() { s.loading = loading })
}

// SetStreaming sets the response-arriving flag.
func (s *Store) SetStreaming(streaming bool) {
	s.mutate(func() { s.streaming = streaming })
}

// SetError sets the user-visible error text. Empty clears it.
func (s *Store) SetError(msg string) {
	s.mutate(func() { s.lastError = msg })
}

// SetRemainingQueries applies a server-reported rate-limit value. The
// client never decrements this itself.
func (s *Store) SetRemainingQueries(n int) {
	s.mutate(func() { s.remaining = n })
}

// AddDebugStep appends one pipeline telemetry record.
func (s *Store) AddDebugStep(step model.DebugStep) {
	s.mutate(func() { s.debugSteps = append(s.debugSteps, step) })
}

// ClearDebugSteps drops telemetry from the previous exchange.
func (s *Store) ClearDebugSteps() {
	s.mutate(func() { s.debugSteps = nil })
}

// SetFollowUps replaces the suggested follow-up questions.
func (s *Store) SetFollowUps(followUps []string) {
	s.mutate(func() {
		if len(followUps) == 0 {
			s.followUps = nil
			return
		}
		s.followUps = make([]string, len(followUps))
		copy(s.followUps, followUps)
	})
}

// =============================================================================
// ANIMATION ACTIONS
// =============================================================================

// StartWordAnimation begins revealing the given message. The id must
// reference an existing assistant message; anything else is a no-op so the
// animation pointer can never dangle.
func (s *Store) StartWordAnimation(id string) {
	s.mutate(func() {
		for _, m := range s.messages {
			if m.ID == id && m.Role == model.RoleAssistant {
				s.animatingID = id
				s.visibleWords = 0
				return
			}
		}
	})
}

// IncrementWordCount reveals one more word. No-op when nothing animates.
func (s *Store) IncrementWordCount() {
	s.mutate(func() {
		if s.animatingID != "" {
			s.visibleWords++
		}
	})
}

// StopWordAnimation ends the reveal. The word count resets to zero in the
// same mutation that clears the animating id.
func (s *Store) StopWordAnimation() {
	s.mutate(func() {
		s.animatingID = ""
		s.visibleWords = 0
	})
}

// =============================================================================
// RESET
// =============================================================================

// ResetConversation clears messages, telemetry, follow-ups, error, flags,
// and animation state in one atomic step.
func (s *Store) ResetConversation() {
	s.mutate(func() {
		s.messages = nil
		s.loading = false
		s.streaming = false
		s.lastError = ""
		s.debugSteps = nil
		s.followUps = nil
		s.animatingID = ""
		s.visibleWords = 0
		if s.persister != nil {
			_ = s.persister.Clear()
		}
	})
}
