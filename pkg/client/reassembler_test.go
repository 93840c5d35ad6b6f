package client

import (
	"sync"
	"testing"
	"time"
)

type renderRecorder struct {
	mu     sync.Mutex
	calls  []string
	finals []string
}

func (r *renderRecorder) render(text string, final bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if final {
		r.finals = append(r.finals, text)
	} else {
		r.calls = append(r.calls, text)
	}
}

func (r *renderRecorder) snapshot() (partials, finals []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...), append([]string(nil), r.finals...)
}

func TestReassembler_CoalescesIncrements(t *testing.T) {
	rec := &renderRecorder{}
	r := NewReassembler(rec.render, 30*time.Millisecond)

	// Three rapid increments inside one window collapse to one render.
	r.Partial("Hel")
	r.Partial("lo ")
	r.Partial("world")

	time.Sleep(60 * time.Millisecond)

	partials, finals := rec.snapshot()
	if len(partials) != 1 {
		t.Fatalf("Expected 1 coalesced render, got %d: %v", len(partials), partials)
	}
	if partials[0] != "Hello world" {
		t.Errorf("Expected accumulated text, got '%s'", partials[0])
	}
	if len(finals) != 0 {
		t.Errorf("No final yet, got %v", finals)
	}
}

func TestReassembler_SpreadIncrementsRenderPerWindow(t *testing.T) {
	rec := &renderRecorder{}
	r := NewReassembler(rec.render, 10*time.Millisecond)

	r.Partial("one")
	time.Sleep(30 * time.Millisecond)
	r.Partial(" two")
	time.Sleep(30 * time.Millisecond)

	partials, _ := rec.snapshot()
	if len(partials) != 2 {
		t.Fatalf("Expected 2 renders, got %d: %v", len(partials), partials)
	}
	if partials[1] != "one two" {
		t.Errorf("Renders show accumulated text, got '%s'", partials[1])
	}
}

func TestReassembler_FinalWinsOverPending(t *testing.T) {
	rec := &renderRecorder{}
	r := NewReassembler(rec.render, 50*time.Millisecond)

	r.Partial("raw markdown")
	// Final arrives before the window elapses; the coalesced render is
	// dropped and the authoritative content is the only render seen.
	r.Final("<p>rendered html</p>")

	time.Sleep(80 * time.Millisecond)

	partials, finals := rec.snapshot()
	if len(partials) != 0 {
		t.Errorf("Pending render must be dropped, got %v", partials)
	}
	if len(finals) != 1 || finals[0] != "<p>rendered html</p>" {
		t.Errorf("Expected authoritative final, got %v", finals)
	}
}

func TestReassembler_InterruptedKeepsAccumulation(t *testing.T) {
	rec := &renderRecorder{}
	r := NewReassembler(rec.render, 50*time.Millisecond)

	r.Partial("partial con")
	r.Interrupted()

	_, finals := rec.snapshot()
	if len(finals) != 1 || finals[0] != "partial con" {
		t.Errorf("Expected the accumulated text as terminal, got %v", finals)
	}

	// Late increments after the end are ignored.
	r.Partial("tent")
	if got := r.Text(); got != "partial con" {
		t.Errorf("Expected no growth after termination, got '%s'", got)
	}
}

func TestReassembler_FinalIsIdempotent(t *testing.T) {
	rec := &renderRecorder{}
	r := NewReassembler(rec.render, 10*time.Millisecond)

	r.Final("done")
	r.Final("done again")
	r.Interrupted()

	_, finals := rec.snapshot()
	if len(finals) != 1 || finals[0] != "done" {
		t.Errorf("Expected a single terminal render, got %v", finals)
	}
}
