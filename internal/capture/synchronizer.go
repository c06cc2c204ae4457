package capture

import (
	"math"
	"sync"

	"github.com/replaykit/joyrec/internal/input"
	"github.com/replaykit/joyrec/internal/logger"
)

// Synchronizer turns the frame producer's timestamp stream plus the event
// buffer into one input state snapshot per video frame. Window boundaries are
// exclusive below and inclusive above: an event belongs to the frame whose
// window satisfies previous_cut < ts <= frame_ts, and everything that arrives
// before the first frame lands in frame 0's window. OnFrame must never be
// called concurrently with itself; the mutex enforces one active cut.
type Synchronizer struct {
	mu      sync.Mutex
	buf     *Buffer
	prevCut float64
	state   input.State
	states  []input.State
	desyncs int
}

// NewSynchronizer returns a synchronizer reading windows from buf.
func NewSynchronizer(buf *Buffer) *Synchronizer {
	return &Synchronizer{
		buf:     buf,
		prevCut: math.Inf(-1),
		state:   input.NewState(),
	}
}

// OnFrame cuts the window ending at ts: folds every buffered event with
// previous_cut < event timestamp <= ts into the running state, records the
// snapshot for this frame, and advances the cut. A frame timestamp behind the
// previous cut is a producer clock regression; the window clamps to zero
// width (no events attributed, snapshot repeats the prior state) and capture
// continues.
func (s *Synchronizer) OnFrame(ts float64) input.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ts < s.prevCut {
		s.desyncs++
		logger.Warn().
			Float64("frame_ts", ts).
			Float64("previous_cut", s.prevCut).
			Msg("Frame timestamp regressed, clamping window to zero width")
		snap := s.state
		snap.Timestamp = s.prevCut
		s.states = append(s.states, snap)
		return snap
	}

	for _, ev := range s.buf.TakeThrough(ts) {
		s.state = input.Apply(s.state, ev)
	}
	s.prevCut = ts

	snap := s.state
	snap.Timestamp = ts
	s.states = append(s.states, snap)
	return snap
}

// States returns a copy of all snapshots recorded so far, one per frame
// notification, in frame order.
func (s *Synchronizer) States() []input.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]input.State, len(s.states))
	copy(out, s.states)
	return out
}

// FrameCount returns the number of frame notifications processed.
func (s *Synchronizer) FrameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

// Desyncs returns how many frame notifications arrived with a regressed
// timestamp.
func (s *Synchronizer) Desyncs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.desyncs
}
