// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"sync"
	"testing"

	"github.com/jeranaias/companion-tui/internal/model"
)

// recordingPersister captures what the store asks to persist.
type recordingPersister struct {
	mu      sync.Mutex
	saves   [][]model.Message
	cleared int
}

func (p *recordingPersister) SaveMessages(msgs []model.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves = append(p.saves, msgs)
	return nil
}

func (p *recordingPersister) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleared++
	return nil
}

func TestAddMessageAssignsIDAndMonotonicTimestamps(t *testing.T) {
	s := New(nil)

	id1 := s.AddMessage(model.Message{Role: model.RoleUser, Content: "a"})
	id2 := s.AddMessage(model.Message{Role: model.RoleAssistant, Content: "b"})
	id3 := s.AddMessage(model.Message{Role: model.RoleUser, Content: "c"})

	if id1 == "" || id2 == "" || id1 == id2 {
		t.Fatalf("ids not unique: %q %q", id1, id2)
	}
	_ = id3

	msgs := s.Snapshot().Messages
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for i := 1; i < len(msgs); i++ {
		if !msgs[i].Timestamp.After(msgs[i-1].Timestamp) {
			t.Errorf("timestamps not strictly increasing at %d: %v vs %v",
				i, msgs[i-1].Timestamp, msgs[i].Timestamp)
		}
	}
}

func TestPersistOnMessageMutations(t *testing.T) {
	p := &recordingPersister{}
	s := New(p)

	s.AddMessage(model.Message{Role: model.RoleUser, Content: "a"})
	s.UpdateLastMessage("patched", nil)
	s.SetLoading(true) // flag mutation, must not persist

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.saves) != 2 {
		t.Fatalf("expected 2 saves, got %d", len(p.saves))
	}
	last := p.saves[1]
	if len(last) != 1 || last[0].Content != "patched" {
		t.Errorf("unexpected persisted state: %+v", last)
	}
}

func TestUpdateLastMessagePatchesContentAndSources(t *testing.T) {
	s := New(nil)
	s.AddMessage(model.Message{Role: model.RoleUser, Content: "q"})
	s.AddMessage(model.Message{Role: model.RoleAssistant, Content: ""})

	s.UpdateLastMessage("odpowiedź", []model.Source{{ID: "e1"}})

	msgs := s.Snapshot().Messages
	last := msgs[len(msgs)-1]
	if last.Content != "odpowiedź" || len(last.Sources) != 1 {
		t.Errorf("patch failed: %+v", last)
	}
	if msgs[0].Content != "q" {
		t.Errorf("earlier message touched: %+v", msgs[0])
	}
}

func TestSubscribeNotifiesAfterEachMutation(t *testing.T) {
	s := New(nil)

	var got []Snapshot
	unsubscribe := s.Subscribe(func(snap Snapshot) {
		got = append(got, snap)
	})

	s.SetLoading(true)
	s.AddMessage(model.Message{Role: model.RoleUser, Content: "x"})

	if len(got) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(got))
	}
	if !got[0].Loading {
		t.Errorf("first snapshot should have Loading set")
	}
	if len(got[1].Messages) != 1 {
		t.Errorf("second snapshot should carry the message")
	}

	unsubscribe()
	s.SetLoading(false)
	if len(got) != 2 {
		t.Errorf("unsubscribed observer was notified")
	}
}

func TestObserverMayCallBackIntoStore(t *testing.T) {
	// Callbacks run outside the lock, so reading the store from one must
	// not deadlock.
	s := New(nil)
	done := false
	s.Subscribe(func(Snapshot) {
		if !done {
			done = true
			_ = s.Snapshot()
		}
	})
	s.SetLoading(true)
	if !done {
		t.Fatal("observer not invoked")
	}
}

func TestAnimationInvariants(t *testing.T) {
	s := New(nil)

	// Unknown id is a no-op.
	s.StartWordAnimation("msg_missing")
	if snap := s.Snapshot(); snap.AnimatingMessageID != "" {
		t.Fatalf("animation started for missing message")
	}

	// User messages cannot animate.
	userID := s.AddMessage(model.Message{Role: model.RoleUser, Content: "q"})
	s.StartWordAnimation(userID)
	if snap := s.Snapshot(); snap.AnimatingMessageID != "" {
		t.Fatalf("animation started for user message")
	}

	id := s.AddMessage(model.Message{Role: model.RoleAssistant, Content: "a b c"})
	s.StartWordAnimation(id)
	s.IncrementWordCount()
	s.IncrementWordCount()

	snap := s.Snapshot()
	if snap.AnimatingMessageID != id || snap.VisibleWordCount != 2 {
		t.Fatalf("unexpected animation state: %+v", snap)
	}

	s.StopWordAnimation()
	snap = s.Snapshot()
	if snap.AnimatingMessageID != "" || snap.VisibleWordCount != 0 {
		t.Errorf("stop must clear id and count together: %+v", snap)
	}

	// Increments after stop are no-ops.
	s.IncrementWordCount()
	if snap := s.Snapshot(); snap.VisibleWordCount != 0 {
		t.Errorf("increment leaked past stop")
	}
}

func TestResetConversationClearsEverything(t *testing.T) {
	p := &recordingPersister{}
	s := New(p)

	id := s.AddMessage(model.Message{Role: model.RoleAssistant, Content: "x"})
	s.SetLoading(true)
	s.SetStreaming(true)
	s.SetError("boom")
	s.SetRemainingQueries(3)
	s.AddDebugStep(model.DebugStep{Step: model.StageGenerating})
	s.SetFollowUps([]string{"a?"})
	s.StartWordAnimation(id)
	s.IncrementWordCount()

	s.ResetConversation()

	snap := s.Snapshot()
	if len(snap.Messages) != 0 || snap.Loading || snap.Streaming ||
		snap.LastError != "" || len(snap.DebugSteps) != 0 ||
		len(snap.FollowUps) != 0 || snap.AnimatingMessageID != "" ||
		snap.VisibleWordCount != 0 {
		t.Errorf("reset left state behind: %+v", snap)
	}
	// Remaining is server knowledge, reset must not invent a value.
	if snap.RemainingQueries != 3 {
		t.Errorf("reset should keep the last server-reported remaining, got %d", snap.RemainingQueries)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cleared != 1 {
		t.Errorf("expected durable clear, got %d", p.cleared)
	}
}

func TestRemainingDefaultsUnknown(t *testing.T) {
	s := New(nil)
	if got := s.Snapshot().RemainingQueries; got != RemainingUnknown {
		t.Errorf("expected %d, got %d", RemainingUnknown, got)
	}
	s.SetRemainingQueries(0)
	if got := s.Snapshot().RemainingQueries; got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}

func TestRestoreMessagesKeepsTimestampsMonotonic(t *testing.T) {
	s := New(nil)
	restored := []model.Message{
		{ID: "msg_1", Role: model.RoleUser, Content: "old"},
	}
	restored[0].Timestamp = restored[0].Timestamp.Add(0) // zero time is fine

	s.RestoreMessages(restored)
	s.AddMessage(model.Message{Role: model.RoleUser, Content: "new"})

	msgs := s.Snapshot().Messages
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if !msgs[1].Timestamp.After(msgs[0].Timestamp) {
		t.Errorf("new message must sort after restored history")
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s := New(nil)
	s.AddMessage(model.Message{Role: model.RoleUser, Content: "a"})
	snap := s.Snapshot()
	snap.Messages[0].Content = "mutated"

	if s.Snapshot().Messages[0].Content != "a" {
		t.Errorf("snapshot mutation leaked into store")
	}
}
