package capture

import (
	"sync"
	"time"

	"github.com/replaykit/joyrec/internal/input"
	"github.com/replaykit/joyrec/internal/logger"
	"github.com/replaykit/joyrec/internal/session"
)

// Options configures one recording session.
type Options struct {
	Name   string
	FPS    float64
	Width  int
	Height int
	Clock  Clock
}

// Recorder owns one in-progress session. Producer goroutines hand it raw
// events and frame notifications; it suppresses key auto-repeat, keeps
// per-kind counters, and assembles the three artifacts at finalize time.
type Recorder struct {
	opts      Options
	buf       *Buffer
	sync      *Synchronizer
	startedAt time.Time

	mu         sync.Mutex
	heldKeys   map[string]bool
	suppressed int64
	counts     map[input.Kind]int64
}

// NewRecorder stamps the session start and returns a recorder ready to
// receive producer callbacks.
func NewRecorder(opts Options) *Recorder {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	buf := NewBuffer()
	return &Recorder{
		opts:      opts,
		buf:       buf,
		sync:      NewSynchronizer(buf),
		startedAt: opts.Clock().UTC(),
		heldKeys:  make(map[string]bool),
		counts:    make(map[input.Kind]int64),
	}
}

// StartedAt returns the wall-clock anchor for session-relative timestamps.
func (r *Recorder) StartedAt() time.Time {
	return r.startedAt
}

// HandleEvent records one producer event. A key press for an already-held
// key, or a release for a key not held, is OS auto-repeat noise and is
// suppressed rather than recorded.
func (r *Recorder) HandleEvent(ev input.Event) {
	r.mu.Lock()
	switch ev.Kind {
	case input.KeyPress:
		if r.heldKeys[ev.Key] {
			r.suppressed++
			r.mu.Unlock()
			return
		}
		r.heldKeys[ev.Key] = true
	case input.KeyRelease:
		if !r.heldKeys[ev.Key] {
			r.suppressed++
			r.mu.Unlock()
			return
		}
		delete(r.heldKeys, ev.Key)
	}
	r.counts[ev.Kind]++
	r.mu.Unlock()

	r.buf.Append(ev)
}

// HandleFrame cuts the window ending at the producer-reported timestamp.
func (r *Recorder) HandleFrame(ts float64) {
	r.sync.OnFrame(ts)
}

// Stats is a point-in-time view of recording progress.
type Stats struct {
	Frames     int
	Events     int
	Suppressed int64
	Elapsed    time.Duration
}

// Stats returns current progress counters for status logging.
func (r *Recorder) Stats() Stats {
	r.mu.Lock()
	suppressed := r.suppressed
	r.mu.Unlock()

	return Stats{
		Frames:     r.sync.FrameCount(),
		Events:     r.buf.Len(),
		Suppressed: suppressed,
		Elapsed:    r.opts.Clock().UTC().Sub(r.startedAt),
	}
}

// Finalize closes the session: returns the time-ordered raw events, the
// frame-aligned snapshots, and the metadata record. droppedFrames is the
// count of frame slots the producers reported missed. Call once, after the
// producers have stopped.
func (r *Recorder) Finalize(droppedFrames int64) ([]input.Event, []input.State, *session.Meta) {
	events := r.buf.All()
	states := r.sync.States()

	r.mu.Lock()
	counts := make(map[string]int64, len(r.counts))
	for k, n := range r.counts {
		counts[string(k)] = n
	}
	suppressed := r.suppressed
	r.mu.Unlock()

	meta := &session.Meta{
		Name:       r.opts.Name,
		StartedAt:  r.startedAt,
		FPS:        r.opts.FPS,
		Resolution: session.Resolution{Width: r.opts.Width, Height: r.opts.Height},
		Duration:   r.opts.Clock().UTC().Sub(r.startedAt).Seconds(),
		FrameCount: len(states),
		EventCount: len(events),
		Screen: session.ScreenStats{
			FrameCount:    len(states),
			DroppedFrames: droppedFrames,
			FPS:           r.opts.FPS,
		},
		Input: session.InputStats{
			TotalEvents: len(events),
			Suppressed:  suppressed,
			EventCounts: counts,
		},
	}

	if n := r.sync.Desyncs(); n > 0 {
		logger.Warn().Int("count", n).Msg("Session recorded with frame clock regressions")
	}

	return events, states, meta
}
