// Package client provides consumer-side helpers for the chat wire protocol:
// reassembling partial frames into a growing reply and coalescing render
// callbacks so a fast stream does not redraw on every increment.
package client

import (
	"strings"
	"sync"
	"time"
)

// DefaultCoalesceWindow is how long the reassembler batches increments
// before invoking the render callback.
const DefaultCoalesceWindow = 100 * time.Millisecond

// RenderFunc receives the accumulated reply text. final is true exactly once
// per reply, for the authoritative content; any pending coalesced render is
// discarded in its favor.
type RenderFunc func(text string, final bool)

// Reassembler accumulates partial frames for one in-flight reply and drives
// a render callback at most once per coalescing window.
type Reassembler struct {
	mu      sync.Mutex
	buf     strings.Builder
	render  RenderFunc
	window  time.Duration
	timer   *time.Timer
	pending bool
	done    bool
}

// NewReassembler creates a Reassembler with the given render callback. A
// zero window falls back to DefaultCoalesceWindow.
func NewReassembler(render RenderFunc, window time.Duration) *Reassembler {
	if window <= 0 {
		window = DefaultCoalesceWindow
	}
	return &Reassembler{render: render, window: window}
}

// Partial appends one increment. The render callback fires after the
// coalescing window elapses, with whatever has accumulated by then.
func (r *Reassembler) Partial(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return
	}
	r.buf.WriteString(text)
	if r.pending {
		return
	}
	r.pending = true
	r.timer = time.AfterFunc(r.window, r.flush)
}

func (r *Reassembler) flush() {
	r.mu.Lock()
	if r.done || !r.pending {
		r.mu.Unlock()
		return
	}
	r.pending = false
	text := r.buf.String()
	r.mu.Unlock()

	r.render(text, false)
}

// Final delivers the authoritative reply content. Any pending coalesced
// render is dropped; content replaces whatever was accumulated, so the
// server-rendered text wins over the raw stream.
func (r *Reassembler) Final(content string) {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return
	}
	r.done = true
	r.pending = false
	if r.timer != nil {
		r.timer.Stop()
	}
	r.mu.Unlock()

	r.render(content, true)
}

// Interrupted ends the reply with the text accumulated so far.
func (r *Reassembler) Interrupted() {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return
	}
	r.done = true
	r.pending = false
	if r.timer != nil {
		r.timer.Stop()
	}
	text := r.buf.String()
	r.mu.Unlock()

	r.render(text, true)
}

// Text returns the raw accumulated text.
func (r *Reassembler) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.String()
}
