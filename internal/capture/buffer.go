// Package capture implements the recording half of the pipeline: a
// thread-safe event buffer, the frame synchronizer that cuts the event stream
// into per-frame windows, an internal frame clock, and the recorder that ties
// them to the session artifacts.
package capture

import (
	"sort"
	"sync"

	"github.com/replaykit/joyrec/internal/input"
)

// Buffer is an append-only, time-ordered store of raw input events for one
// session. Appends may arrive with jittered (out-of-order) timestamps from
// the producer; the unconsumed tail is stably re-sorted before every window
// query so per-frame attribution always sees time-ordered events. Ties keep
// insertion order. All methods are safe for one producer appending while one
// consumer cuts windows.
type Buffer struct {
	mu     sync.Mutex
	events []input.Event
	cursor int // first index not yet taken by a window cut
	dirty  bool
}

// NewBuffer returns an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append adds one event. Out-of-order timestamps are accepted and resolved
// at the next window query.
func (b *Buffer) Append(ev input.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n := len(b.events); n > 0 && ev.Timestamp < b.events[n-1].Timestamp {
		b.dirty = true
	}
	b.events = append(b.events, ev)
}

// TakeThrough returns the events of the next window, everything unconsumed
// with timestamp <= t, in time order, and advances the window start past
// them. An event that arrived late, after the window its timestamp belonged
// to was already cut, is returned with the current window so it is applied
// exactly once rather than dropped.
func (b *Buffer) TakeThrough(t float64) []input.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sortTailLocked()

	i := b.cursor
	for i < len(b.events) && b.events[i].Timestamp <= t {
		i++
	}
	if i == b.cursor {
		return nil
	}
	window := make([]input.Event, i-b.cursor)
	copy(window, b.events[b.cursor:i])
	b.cursor = i
	return window
}

// PeekThrough returns, without consuming, every buffered event with
// timestamp <= t in time order.
func (b *Buffer) PeekThrough(t float64) []input.Event {
	all := b.All()
	i := sort.Search(len(all), func(i int) bool { return all[i].Timestamp > t })
	return all[:i]
}

// All returns a time-ordered copy of every buffered event, consumed or not.
// Used when persisting the raw event log.
func (b *Buffer) All() []input.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]input.Event, len(b.events))
	copy(out, b.events)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

// Len returns the number of buffered events.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// sortTailLocked stably sorts the unconsumed tail if any append since the
// last cut was out of order. Caller holds b.mu.
func (b *Buffer) sortTailLocked() {
	if !b.dirty {
		return
	}
	tail := b.events[b.cursor:]
	sort.SliceStable(tail, func(i, j int) bool { return tail[i].Timestamp < tail[j].Timestamp })
	b.dirty = false
}
