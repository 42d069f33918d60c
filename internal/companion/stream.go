// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package companion

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/jeranaias/companion-tui/internal/model"
)

// STREAMING: Robust SSE parsing with error handling

// =============================================================================
// FRAME TYPE
// =============================================================================

// Frame is one parsed logical unit of the answer stream. Every field is
// optional; pointers distinguish "absent" from zero values where that
// matters (remaining can legitimately be 0).
type Frame struct {
	Status    string           `json:"status,omitempty"`
	Debug     *model.DebugStep `json:"debug,omitempty"`
	Content   string           `json:"content,omitempty"`
	Sources   []model.Source   `json:"sources,omitempty"`
	Remaining *int             `json:"remaining,omitempty"`
	FollowUps []string         `json:"follow_ups,omitempty"`
}

// doneSentinel marks logical completion on the wire. It carries no payload;
// the transport's own end-of-stream is the terminal signal.
const doneSentinel = "[DONE]"

// =============================================================================
// SSE DECODER
// =============================================================================

// Decoder reassembles SSE frames from arbitrarily chunked input. The
// trailing partial line of every chunk is buffered until the rest arrives,
// so frame boundaries never depend on how the transport split the bytes.
type Decoder struct {
	buf strings.Builder
}

// Feed appends one network chunk and returns all frames completed by it.
func (d *Decoder) Feed(chunk string) []Frame {
	d.buf.WriteString(chunk)
	data := d.buf.String()

	idx := strings.LastIndexByte(data, '\n')
	if idx == -1 {
		return nil
	}
	complete := data[:idx]
	d.buf.Reset()
	d.buf.WriteString(data[idx+1:])

	var frames []Frame
	for _, line := range strings.Split(complete, "\n") {
		if frame, ok := parseLine(line); ok {
			frames = append(frames, frame)
		}
	}
	return frames
}

// Flush decodes whatever remains in the buffer at end of stream. A stream
// whose final line lacks a trailing newline still yields its last frame.
func (d *Decoder) Flush() []Frame {
	rest := d.buf.String()
	d.buf.Reset()
	if rest == "" {
		return nil
	}
	if frame, ok := parseLine(rest); ok {
		return []Frame{frame}
	}
	return nil
}

// parseLine decodes a single SSE line. Non-data lines, the [DONE]
// sentinel, and malformed JSON are all skipped; a bad frame never aborts
// the stream.
func parseLine(line string) (Frame, bool) {
	line = strings.TrimRight(line, "\r")
	if !strings.HasPrefix(line, "data:") {
		return Frame{}, false
	}
	payload := strings.TrimSpace(line[len("data:"):])
	if payload == "" || payload == doneSentinel {
		return Frame{}, false
	}
	var frame Frame
	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		return Frame{}, false
	}
	return frame, true
}

// =============================================================================
// STREAM READER
// =============================================================================

// streamReadSize is the per-read buffer for the response body.
const streamReadSize = 4096

// ReadStream consumes the response body, invoking onFrame for every
// decoded frame in arrival order. Returns nil on normal end of stream and
// the context error on cancellation.
func ReadStream(ctx context.Context, body io.Reader, onFrame func(Frame)) error {
	dec := &Decoder{}
	buf := make([]byte, streamReadSize)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := body.Read(buf)
		if n > 0 {
			for _, frame := range dec.Feed(string(buf[:n])) {
				onFrame(frame)
			}
		}
		if err != nil {
			if err == io.EOF {
				for _, frame := range dec.Flush() {
					onFrame(frame)
				}
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
}

// =============================================================================
// ACCUMULATOR
// =============================================================================

// Accumulator folds frames into the state of one exchange. Content deltas
// concatenate; status and remaining overwrite; debug appends; sources and
// follow-ups replace.
type Accumulator struct {
	Status    string
	Debug     []model.DebugStep
	Sources   []model.Source
	FollowUps []string

	// Remaining is the last server-reported rate-limit value, -1 until the
	// server sends one. Exhausted latches when it reaches exactly 0.
	Remaining int
	Exhausted bool

	content strings.Builder
}

// NewAccumulator creates an accumulator with the rate limit unknown.
func NewAccumulator() *Accumulator {
	return &Accumulator{Remaining: -1}
}

// Fold applies one frame in arrival order.
func (a *Accumulator) Fold(frame Frame) {
	if frame.Status != "" {
		a.Status = frame.Status
	}
	if frame.Debug != nil {
		a.Debug = append(a.Debug, *frame.Debug)
	}
	if frame.Content != "" {
		a.content.WriteString(frame.Content)
	}
	if frame.Sources != nil {
		a.Sources = frame.Sources
	}
	if frame.FollowUps != nil {
		a.FollowUps = frame.FollowUps
	}
	if frame.Remaining != nil {
		a.Remaining = *frame.Remaining
		if a.Remaining == 0 {
			a.Exhausted = true
		}
	}
}

// FoldFallback applies a non-streaming JSON response as if it had arrived
// as a single-frame stream.
func (a *Accumulator) FoldFallback(fb Fallback) {
	a.Fold(Frame{
		Content:   fb.Content,
		Sources:   fb.Sources,
		Remaining: fb.Remaining,
		FollowUps: fb.FollowUps,
	})
	for _, step := range fb.Debug {
		a.Fold(Frame{Debug: &step})
	}
}

// Content returns the accumulated answer text.
func (a *Accumulator) Content() string {
	return a.content.String()
}
