// Package input defines the discrete event model shared by capture and
// replay: raw keyboard/mouse events stamped relative to session start, and
// the cumulative per-frame state derived from them.
package input

// Kind identifies what a recorded event describes.
type Kind string

const (
	KeyPress           Kind = "key_press"
	KeyRelease         Kind = "key_release"
	MouseMove          Kind = "mouse_move"
	MouseButtonPress   Kind = "mouse_button_press"
	MouseButtonRelease Kind = "mouse_button_release"
	MouseScroll        Kind = "mouse_scroll"
)

// Event is one discrete input sample. Timestamp is in seconds since session
// start (monotonic, >= 0). Payload fields are kind-specific: Key for key
// events, X/Y for mouse moves, Button for mouse buttons, ScrollX/ScrollY for
// wheel steps. Events are immutable once appended to a buffer.
type Event struct {
	Timestamp float64 `json:"ts"`
	Kind      Kind    `json:"kind"`
	Key       string  `json:"key,omitempty"`
	X         int     `json:"x,omitempty"`
	Y         int     `json:"y,omitempty"`
	Button    string  `json:"btn,omitempty"`
	ScrollX   int     `json:"dx,omitempty"`
	ScrollY   int     `json:"dy,omitempty"`
}

// IsKey reports whether the event is a key press or release.
func (e Event) IsKey() bool {
	return e.Kind == KeyPress || e.Kind == KeyRelease
}

// IsButton reports whether the event is a mouse button press or release.
func (e Event) IsButton() bool {
	return e.Kind == MouseButtonPress || e.Kind == MouseButtonRelease
}
