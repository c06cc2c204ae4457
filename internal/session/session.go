// Package session persists recordings: the raw event log and frame-aligned
// snapshot sequence as JSONL, session metadata as a single JSON document
// written last, and a SQLite catalog indexing finished sessions for listing
// and lookup.
package session

import (
	"errors"
	"time"
)

// ErrIncompleteSession marks a session directory whose metadata artifact is
// missing or unreadable. Metadata is written last, so its absence means the
// recording never finished cleanly; callers must not treat such a directory
// as an empty session.
var ErrIncompleteSession = errors.New("incomplete session")

// Artifact names inside a session directory. The video artifact produced by
// the external screen service lives alongside them and is never read here.
const (
	EventsFile = "events.jsonl"
	StatesFile = "states.jsonl"
	MetaFile   = "metadata.json"
)

// Resolution is the recorded screen size in pixels.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ScreenStats summarizes the frame stream of a finished session.
type ScreenStats struct {
	FrameCount    int     `json:"frame_count"`
	DroppedFrames int64   `json:"dropped_frames"`
	FPS           float64 `json:"fps"`
}

// InputStats summarizes the event stream of a finished session.
type InputStats struct {
	TotalEvents int              `json:"total_events"`
	Suppressed  int64            `json:"suppressed,omitempty"`
	EventCounts map[string]int64 `json:"event_counts,omitempty"`
}

// Meta is the session metadata artifact. Written exactly once at clean
// session end; immutable afterwards.
type Meta struct {
	Name       string      `json:"name"`
	StartedAt  time.Time   `json:"session_start"`
	FPS        float64     `json:"fps"`
	Resolution Resolution  `json:"resolution"`
	Duration   float64     `json:"duration"`
	FrameCount int         `json:"frame_count"`
	EventCount int         `json:"event_count"`
	Screen     ScreenStats `json:"screen_stats"`
	Input      InputStats  `json:"input_stats"`
}
