package capture

import (
	"reflect"
	"testing"
	"time"

	"github.com/replaykit/joyrec/internal/input"
)

func TestRecorderSuppressesAutoRepeat(t *testing.T) {
	r := NewRecorder(Options{Name: "test", FPS: 30})

	r.HandleEvent(input.Event{Timestamp: 0.01, Kind: input.KeyPress, Key: "w"})
	r.HandleEvent(input.Event{Timestamp: 0.02, Kind: input.KeyPress, Key: "w"}) // OS auto-repeat
	r.HandleEvent(input.Event{Timestamp: 0.03, Kind: input.KeyRelease, Key: "w"})
	r.HandleEvent(input.Event{Timestamp: 0.04, Kind: input.KeyRelease, Key: "w"}) // spurious release

	stats := r.Stats()
	if stats.Events != 2 {
		t.Errorf("recorded events = %d, want 2", stats.Events)
	}
	if stats.Suppressed != 2 {
		t.Errorf("suppressed = %d, want 2", stats.Suppressed)
	}
}

func TestRecorderPipeline(t *testing.T) {
	r := NewRecorder(Options{Name: "test", FPS: 30, Width: 640, Height: 480})

	r.HandleEvent(input.Event{Timestamp: 0.01, Kind: input.KeyPress, Key: "w"})
	r.HandleFrame(0.033)
	r.HandleEvent(input.Event{Timestamp: 0.05, Kind: input.KeyRelease, Key: "w"})
	r.HandleEvent(input.Event{Timestamp: 0.06, Kind: input.MouseMove, X: 320, Y: 240})
	r.HandleFrame(0.066)

	events, states, meta := r.Finalize(0)

	if len(events) != 3 {
		t.Fatalf("event count = %d, want 3", len(events))
	}
	if len(states) != 2 {
		t.Fatalf("state count = %d, want 2", len(states))
	}
	if !reflect.DeepEqual(states[0].Keys, []string{"w"}) {
		t.Errorf("frame 0 keys = %v, want [w]", states[0].Keys)
	}
	if len(states[1].Keys) != 0 {
		t.Errorf("frame 1 keys = %v, want empty", states[1].Keys)
	}
	if states[1].MouseX != 320 || states[1].MouseY != 240 {
		t.Errorf("frame 1 mouse = (%d,%d), want (320,240)", states[1].MouseX, states[1].MouseY)
	}

	if meta.FrameCount != 2 || meta.EventCount != 3 {
		t.Errorf("meta counts = (%d frames, %d events), want (2, 3)",
			meta.FrameCount, meta.EventCount)
	}
	if meta.Resolution.Width != 640 || meta.Resolution.Height != 480 {
		t.Errorf("meta resolution = %+v, want 640x480", meta.Resolution)
	}
}

func TestRecorderFinalizeMeta(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := NewRecorder(Options{
		Name:  "session_test",
		FPS:   60,
		Clock: func() time.Time { return now },
	})

	r.HandleEvent(input.Event{Timestamp: 0.1, Kind: input.KeyPress, Key: "space"})
	r.HandleEvent(input.Event{Timestamp: 0.2, Kind: input.MouseScroll, ScrollY: -1})
	r.HandleFrame(0.1)

	now = now.Add(1500 * time.Millisecond)
	_, _, meta := r.Finalize(4)

	if meta.Name != "session_test" {
		t.Errorf("name = %q, want session_test", meta.Name)
	}
	if meta.Duration != 1.5 {
		t.Errorf("duration = %v, want 1.5", meta.Duration)
	}
	if !meta.StartedAt.Equal(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("started at = %v, want fixed clock start", meta.StartedAt)
	}
	if meta.Screen.DroppedFrames != 4 {
		t.Errorf("dropped frames = %d, want 4", meta.Screen.DroppedFrames)
	}
	wantCounts := map[string]int64{"key_press": 1, "mouse_scroll": 1}
	if !reflect.DeepEqual(meta.Input.EventCounts, wantCounts) {
		t.Errorf("event counts = %v, want %v", meta.Input.EventCounts, wantCounts)
	}
}
