package session

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/replaykit/joyrec/internal/input"
)

func sampleMeta(name string) *Meta {
	return &Meta{
		Name:       name,
		StartedAt:  time.Date(2025, 6, 1, 12, 0, 0, 123456789, time.UTC),
		FPS:        30,
		Resolution: Resolution{Width: 2560, Height: 1440},
		Duration:   0.1,
		FrameCount: 3,
		EventCount: 2,
		Screen:     ScreenStats{FrameCount: 3, DroppedFrames: 1, FPS: 30},
		Input: InputStats{
			TotalEvents: 2,
			EventCounts: map[string]int64{"key_press": 1, "key_release": 1},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	events := []input.Event{
		{Timestamp: 0.01, Kind: input.KeyPress, Key: "w"},
		{Timestamp: 0.02, Kind: input.MouseMove, X: 100, Y: 50},
		{Timestamp: 0.05, Kind: input.KeyRelease, Key: "w"},
	}
	states := []input.State{
		{Timestamp: 0.0, Keys: []string{}, Buttons: []string{}},
		{Timestamp: 0.033, Keys: []string{"w"}, MouseX: 100, MouseY: 50, Buttons: []string{}},
		{Timestamp: 0.066, Keys: []string{}, MouseX: 100, MouseY: 50, Buttons: []string{}},
	}
	meta := sampleMeta("session_roundtrip")
	meta.EventCount = len(events)
	meta.FrameCount = len(states)

	if err := Save(dir, events, states, meta); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	gotEvents, gotStates, gotMeta, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !reflect.DeepEqual(gotEvents, events) {
		t.Errorf("events round trip mismatch:\n got %+v\nwant %+v", gotEvents, events)
	}
	if !reflect.DeepEqual(gotStates, states) {
		t.Errorf("states round trip mismatch:\n got %+v\nwant %+v", gotStates, states)
	}
	if !reflect.DeepEqual(gotMeta, meta) {
		t.Errorf("meta round trip mismatch:\n got %+v\nwant %+v", gotMeta, meta)
	}
}

func TestSaveLoadNoEvents(t *testing.T) {
	dir := t.TempDir()

	// An idle recording: frames kept coming, nothing was pressed.
	states := []input.State{
		{Timestamp: 0.0, Keys: []string{}, Buttons: []string{}},
		{Timestamp: 0.033, Keys: []string{}, Buttons: []string{}},
	}
	meta := sampleMeta("session_idle")

	if err := Save(dir, []input.Event{}, states, meta); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	gotEvents, gotStates, _, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(gotEvents) != 0 {
		t.Errorf("events = %+v, want empty", gotEvents)
	}
	if !reflect.DeepEqual(gotStates, states) {
		t.Errorf("states mismatch: got %+v want %+v", gotStates, states)
	}
}

func TestLoadMissingMetadataIsIncomplete(t *testing.T) {
	dir := t.TempDir()

	// Simulate a recording killed before finalize: event log exists,
	// metadata was never written.
	if err := os.WriteFile(filepath.Join(dir, EventsFile), []byte(`{"ts":0.01,"kind":"key_press","key":"w"}`+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	events, states, meta, err := Load(dir)
	if !errors.Is(err, ErrIncompleteSession) {
		t.Fatalf("Load error = %v, want ErrIncompleteSession", err)
	}
	if events != nil || states != nil || meta != nil {
		t.Errorf("Load returned partial data (%v, %v, %v), want none", events, states, meta)
	}
}

func TestLoadUnreadableMetadataIsIncomplete(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, MetaFile), []byte("not json{"), 0644); err != nil {
		t.Fatal(err)
	}

	_, _, _, err := Load(dir)
	if !errors.Is(err, ErrIncompleteSession) {
		t.Errorf("Load error = %v, want ErrIncompleteSession", err)
	}
}

func TestLoadMissingDirectoryIsIncomplete(t *testing.T) {
	_, _, _, err := Load(filepath.Join(t.TempDir(), "no_such_session"))
	if !errors.Is(err, ErrIncompleteSession) {
		t.Errorf("Load error = %v, want ErrIncompleteSession", err)
	}
}

func TestStoreCreateSession(t *testing.T) {
	root := t.TempDir()
	store, err := NewStore(filepath.Join(root, "recordings"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	dir, err := store.CreateSession("session_20250601_120000")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Errorf("session directory not created: %v", err)
	}
}

func TestResolveNameCollision(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	first := ResolveName(root, now)
	if first != "session_20250601_120000" {
		t.Errorf("first name = %q, want session_20250601_120000", first)
	}

	if err := os.Mkdir(filepath.Join(root, first), 0755); err != nil {
		t.Fatal(err)
	}
	second := ResolveName(root, now)
	if second != "session_20250601_120000_2" {
		t.Errorf("second name = %q, want session_20250601_120000_2", second)
	}

	if err := os.Mkdir(filepath.Join(root, second), 0755); err != nil {
		t.Fatal(err)
	}
	third := ResolveName(root, now)
	if third != "session_20250601_120000_3" {
		t.Errorf("third name = %q, want session_20250601_120000_3", third)
	}
}
