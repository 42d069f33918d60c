// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/companion-tui/internal/companion"
	"github.com/jeranaias/companion-tui/internal/format"
	"github.com/jeranaias/companion-tui/internal/model"
	"github.com/jeranaias/companion-tui/internal/reveal"
	"github.com/jeranaias/companion-tui/internal/store"
)

// =============================================================================
// STATE MACHINE
// =============================================================================

// State is the orchestrator's position in the send cycle.
type State int

const (
	StateIdle State = iota
	StateSending
	StateStreaming
	StateCompleting
	StateError
)

// String returns the state name for status displays.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateCompleting:
		return "completing"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Hooks let the view feed scroll position into the reveal. Both are
// optional.
type Hooks struct {
	AtBottom func() bool
	Scroll   func()
}

// Orchestrator composes the store, the backend client, the lifecycle
// controller, and the reveal scheduler into the send state machine
// Idle -> Sending -> (Streaming | Completing) -> Idle, with Error
// reachable on failure and every state cancellable back to Idle.
type Orchestrator struct {
	store  *store.Store
	client *companion.Client
	sched  *reveal.Scheduler
	ctrl   *Controller
	hooks  Hooks

	mu    sync.Mutex
	state State
}

// New creates an orchestrator around the given collaborators.
func New(st *store.Store, client *companion.Client, sched *reveal.Scheduler, hooks Hooks) *Orchestrator {
	return &Orchestrator{
		store:  st,
		client: client,
		sched:  sched,
		ctrl:   NewController(),
		hooks:  hooks,
	}
}

// State returns the current state machine position.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// =============================================================================
// SEND
// =============================================================================

// Send submits a user message. Empty input, a request already in flight,
// and an exhausted rate limit are all silent no-ops; nothing is queued.
// The user message is appended before the network call starts, so it is
// visible even if the request later fails.
func (o *Orchestrator) Send(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	snap := o.store.Snapshot()
	if snap.Loading || snap.Streaming {
		return
	}
	if snap.RemainingQueries == 0 {
		return
	}

	// History is the tail before this message; the message itself rides
	// in its own field.
	history := model.HistoryTail(snap.Messages, model.MaxHistoryTail)

	o.store.AddMessage(model.Message{Role: model.RoleUser, Content: text})
	o.store.ClearDebugSteps()
	o.store.SetFollowUps(nil)
	o.store.SetError("")
	o.store.SetLoading(true)
	o.setState(StateSending)

	ctx, gen := o.ctrl.Begin(context.Background())
	go o.run(ctx, gen, text, history)
}

// run executes one request end to end on its own goroutine.
func (o *Orchestrator) run(ctx context.Context, gen uint64, text string, history []model.HistoryMessage) {
	start := time.Now()

	if err := o.ctrl.Throttle(ctx); err != nil {
		o.fail(gen, err)
		return
	}

	resp, err := o.client.Send(ctx, text, history)
	if err != nil {
		o.fail(gen, err)
		return
	}

	acc := companion.NewAccumulator()
	if resp.Streaming {
		defer resp.Body.Close()
		if !o.ctrl.Current(gen) {
			return
		}
		o.setState(StateStreaming)
		o.store.SetStreaming(true)

		err = companion.ReadStream(ctx, resp.Body, func(frame companion.Frame) {
			// RELIABILITY: a frame from a superseded request must never
			// reach the store.
			if !o.ctrl.Current(gen) {
				return
			}
			o.foldLive(frame, acc)
		})
		if err != nil {
			o.fail(gen, err)
			return
		}
	} else {
		o.setState(StateCompleting)
		acc.FoldFallback(*resp.Fallback)
		if o.ctrl.Current(gen) {
			o.applyAccumulated(acc)
		}
	}

	o.complete(ctx, gen, acc, time.Since(start))
}

// foldLive folds one frame and mirrors its side channels into the store
// as they arrive. Content stays in the accumulator until completion.
func (o *Orchestrator) foldLive(frame companion.Frame, acc *companion.Accumulator) {
	acc.Fold(frame)
	if frame.Debug != nil {
		o.store.AddDebugStep(*frame.Debug)
	}
	if frame.Remaining != nil {
		o.store.SetRemainingQueries(*frame.Remaining)
	}
	if frame.FollowUps != nil {
		o.store.SetFollowUps(frame.FollowUps)
	}
}

// applyAccumulated pushes a fallback response's side channels into the
// store in one pass, matching what a stream would have done frame by
// frame.
func (o *Orchestrator) applyAccumulated(acc *companion.Accumulator) {
	for _, step := range acc.Debug {
		o.store.AddDebugStep(step)
	}
	if acc.Remaining >= 0 {
		o.store.SetRemainingQueries(acc.Remaining)
	}
	if acc.FollowUps != nil {
		o.store.SetFollowUps(acc.FollowUps)
	}
}

// complete finalizes a successful exchange: sanitize, append the
// assistant message, and hand it to the reveal scheduler.
func (o *Orchestrator) complete(ctx context.Context, gen uint64, acc *companion.Accumulator, elapsed time.Duration) {
	if !o.ctrl.Current(gen) || ctx.Err() != nil {
		return
	}
	o.ctrl.Finish(gen)

	content := format.Sanitize(acc.Content())
	id := o.store.AddMessage(model.Message{
		Role:         model.RoleAssistant,
		Content:      content,
		Sources:      acc.Sources,
		GenerationMs: elapsed.Milliseconds(),
	})

	o.store.SetStreaming(false)
	o.store.SetLoading(false)
	o.setState(StateIdle)

	o.store.StartWordAnimation(id)
	o.sched.Reveal(id, format.TokenCount(content), reveal.Hooks{
		OnTick:   func(int) { o.store.IncrementWordCount() },
		OnDone:   o.store.StopWordAnimation,
		AtBottom: o.hooks.AtBottom,
		Scroll:   o.hooks.Scroll,
	})
}

// fail ends a request on error. Superseded requests and cancellations
// never touch the store; real failures surface a localized message and
// leave history intact.
func (o *Orchestrator) fail(gen uint64, err error) {
	if !o.ctrl.Current(gen) {
		return
	}
	o.ctrl.Finish(gen)

	o.store.SetStreaming(false)
	o.store.SetLoading(false)

	if errors.Is(err, context.Canceled) {
		o.setState(StateIdle)
		return
	}

	o.setState(StateError)
	o.store.SetError(userErrorMessage(err, o.client.Language()))
}

// =============================================================================
// CONTROL OPERATIONS
// =============================================================================

// Cancel aborts the in-flight request, if any. Abort is not an error:
// the flags clear and the state returns to Idle silently.
func (o *Orchestrator) Cancel() {
	o.ctrl.CancelActive()
	o.store.SetStreaming(false)
	o.store.SetLoading(false)
	o.setState(StateIdle)
}

// NewConversation cancels any in-flight work, stops the reveal, and
// resets the store in one step.
func (o *Orchestrator) NewConversation() {
	o.ctrl.CancelActive()
	o.sched.Stop()
	o.store.ResetConversation()
	o.setState(StateIdle)
}

// Close tears the orchestrator down at session end.
func (o *Orchestrator) Close() {
	o.ctrl.CancelActive()
	o.sched.Stop()
}

// PrimeRateLimit fetches the server-side counter once at session start.
// On failure the counter simply stays unknown.
func (o *Orchestrator) PrimeRateLimit(ctx context.Context) {
	info, err := o.client.Status(ctx)
	if err != nil {
		return
	}
	o.store.SetRemainingQueries(info.Remaining)
}

// minSuggestions is how many server suggestions it takes to displace the
// built-in defaults.
const minSuggestions = 4

// LoadSuggestions returns starter questions for the empty-conversation
// view, falling back to per-language defaults when the server offers
// fewer than minSuggestions.
func (o *Orchestrator) LoadSuggestions(ctx context.Context) []string {
	got, err := o.client.Suggestions(ctx)
	if err == nil && len(got) >= minSuggestions {
		return got
	}
	return defaultSuggestions(o.client.Language())
}

// =============================================================================
// LOCALIZED STRINGS
// =============================================================================

// userErrorMessage turns a request failure into user-visible text. The
// server's own message wins when it sent one.
func userErrorMessage(err error, language string) string {
	var apiErr *companion.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	switch language {
	case "en":
		return "Something went wrong. Please try again."
	case "de":
		return "Etwas ist schiefgelaufen. Bitte versuche es erneut."
	default:
		return "Coś poszło nie tak. Spróbuj ponownie."
	}
}

// defaultSuggestions are the built-in starter questions per language.
func defaultSuggestions(language string) []string {
	switch language {
	case "en":
		return []string{
			"What happened in the world today?",
			"Summarize the biggest story of the week",
			"What's new in the economy?",
			"Any major political developments?",
		}
	case "de":
		return []string{
			"Was ist heute in der Welt passiert?",
			"Fasse die größte Geschichte der Woche zusammen",
			"Was gibt es Neues aus der Wirtschaft?",
			"Gab es wichtige politische Entwicklungen?",
		}
	default:
		return []string{
			"Co wydarzyło się dzisiaj na świecie?",
			"Podsumuj najważniejsze wydarzenie tygodnia",
			"Co nowego w gospodarce?",
			"Jakie są najważniejsze wydarzenia polityczne?",
		}
	}
}
