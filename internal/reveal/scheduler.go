// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reveal paces an already-complete answer into a word-by-word
// visual stream. The scheduler is fully decoupled from network timing: it
// is handed the final token count and plays it back on an easing timer
// that decelerates as a function of reveal progress, not wall time.
package reveal

import (
	"sync"
	"time"
)

// Default per-step delays. The first words appear quickly, then pacing
// eases out toward the slow delay as the reveal progresses.
const (
	DefaultFastDelay = 18 * time.Millisecond
	DefaultSlowDelay = 90 * time.Millisecond
)

// Hooks are the scheduler's outputs. OnTick fires once per revealed unit,
// OnDone once when the reveal finishes on its own (not on Stop, and it
// must be idempotent). Scroll fires after a tick only while AtBottom
// reports true at that instant; a user scrolled up is never yanked down.
// Hooks must not call back into the Scheduler.
type Hooks struct {
	OnTick   func(visible int)
	OnDone   func()
	AtBottom func() bool
	Scroll   func()
}

// Scheduler runs at most one reveal at a time. Starting a new reveal or
// stopping synchronously invalidates any pending timer via a generation
// counter, so a stale tick can never fire afterward.
type Scheduler struct {
	mu        sync.Mutex
	gen       uint64
	timer     *time.Timer
	messageID string

	fastDelay time.Duration
	slowDelay time.Duration
}

// NewScheduler creates a scheduler with the default pacing.
func NewScheduler() *Scheduler {
	return &Scheduler{
		fastDelay: DefaultFastDelay,
		slowDelay: DefaultSlowDelay,
	}
}

// SetDelays adjusts the pacing envelope. Applies from the next step.
func (s *Scheduler) SetDelays(fast, slow time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fast > 0 {
		s.fastDelay = fast
	}
	if slow >= s.fastDelay {
		s.slowDelay = slow
	} else {
		s.slowDelay = s.fastDelay
	}
}

// Reveal starts revealing messageID with totalUnits units, replacing any
// reveal still running. totalUnits <= 0 completes immediately.
func (s *Scheduler) Reveal(messageID string, totalUnits int, hooks Hooks) {
	s.mu.Lock()
	s.stopLocked()
	if totalUnits <= 0 {
		s.mu.Unlock()
		if hooks.OnDone != nil {
			hooks.OnDone()
		}
		return
	}
	s.messageID = messageID
	gen := s.gen
	s.scheduleLocked(gen, 1, totalUnits, hooks)
	s.mu.Unlock()
}

// Stop cancels the running reveal. Pending ticks become no-ops before
// Stop returns; OnDone is not called.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopLocked()
	s.mu.Unlock()
}

// Active reports whether a reveal is in progress and for which message.
func (s *Scheduler) Active() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messageID, s.messageID != ""
}

// stopLocked invalidates the current generation and its timer.
func (s *Scheduler) stopLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.messageID = ""
}

// scheduleLocked arms the timer for revealing unit next of total.
func (s *Scheduler) scheduleLocked(gen uint64, next, total int, hooks Hooks) {
	delay := s.stepDelayLocked(next, total)
	s.timer = time.AfterFunc(delay, func() {
		s.tick(gen, next, total, hooks)
	})
}

// tick reveals one unit. The generation check under the lock makes ticks
// from a superseded reveal no-ops; hooks for a live tick run under the
// lock so Stop cannot interleave between the check and the mutation.
func (s *Scheduler) tick(gen uint64, next, total int, hooks Hooks) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}

	if hooks.OnTick != nil {
		hooks.OnTick(next)
	}
	if hooks.Scroll != nil && hooks.AtBottom != nil && hooks.AtBottom() {
		hooks.Scroll()
	}

	if next >= total {
		s.stopLocked()
		s.mu.Unlock()
		if hooks.OnDone != nil {
			hooks.OnDone()
		}
		return
	}

	s.scheduleLocked(gen, next+1, total, hooks)
	s.mu.Unlock()
}

// stepDelayLocked eases the per-step delay from fast to slow as a cubic
// function of progress. Long and short answers share the same perceived
// deceleration curve.
func (s *Scheduler) stepDelayLocked(next, total int) time.Duration {
	progress := float64(next-1) / float64(total)
	eased := easeOutCubic(progress)
	return s.fastDelay + time.Duration(eased*float64(s.slowDelay-s.fastDelay))
}

// easeOutCubic maps linear progress t in [0,1] onto a curve that moves
// fast at first and settles slowly.
func easeOutCubic(t float64) float64 {
	inv := 1 - t
	return 1 - inv*inv*inv
}
