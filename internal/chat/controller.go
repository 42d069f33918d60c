// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat drives a conversation: the lifecycle controller keeps at
// most one request in flight, and the orchestrator runs the send state
// machine from user input to the finished reveal.
package chat

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// sendInterval spaces outgoing requests as local politeness. The server's
// rate limit is authoritative; this only stops a key-repeat burst.
const sendInterval = 300 * time.Millisecond

// Controller owns the in-flight request. Beginning a new request cancels
// and supersedes the previous one; a generation token lets late callbacks
// from a superseded request detect they are stale.
type Controller struct {
	mu      sync.Mutex
	cancel  context.CancelFunc
	gen     uint64
	limiter *rate.Limiter
}

// NewController creates an idle controller.
func NewController() *Controller {
	return &Controller{
		limiter: rate.NewLimiter(rate.Every(sendInterval), 1),
	}
}

// Begin cancels any in-flight request and registers a new one. Returns
// the request context and its generation token.
func (c *Controller) Begin(parent context.Context) (context.Context, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	c.cancel = cancel
	c.gen++
	return ctx, c.gen
}

// Current reports whether gen identifies the active request. Callbacks
// must check this before touching shared state.
func (c *Controller) Current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil && gen == c.gen
}

// Finish releases the request identified by gen, if it is still active.
func (c *Controller) Finish(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil || gen != c.gen {
		return
	}
	c.cancel()
	c.cancel = nil
}

// CancelActive aborts the in-flight request, if any, and invalidates its
// generation so pending callbacks become no-ops.
func (c *Controller) CancelActive() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return
	}
	c.cancel()
	c.cancel = nil
	c.gen++
}

// Throttle waits out the local send spacing. Returns early with the
// context error on cancellation.
func (c *Controller) Throttle(ctx context.Context) error {
	return c.limiter.Wait(ctx)
}
