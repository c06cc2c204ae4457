package input

import "sort"

// State is the cumulative input picture at one video frame boundary: every
// key and mouse button held after folding all events up to and including
// Timestamp, plus the last observed mouse position. Keys and Buttons are kept
// sorted so serialized states compare structurally.
type State struct {
	Timestamp float64  `json:"ts"`
	Keys      []string `json:"keys"`
	MouseX    int      `json:"mouse_x"`
	MouseY    int      `json:"mouse_y"`
	Buttons   []string `json:"buttons"`
}

// NewState returns an empty state with non-nil sets.
func NewState() State {
	return State{Keys: []string{}, Buttons: []string{}}
}

// KeyHeld reports whether key is in the pressed set.
func (s State) KeyHeld(key string) bool {
	i := sort.SearchStrings(s.Keys, key)
	return i < len(s.Keys) && s.Keys[i] == key
}

// ButtonHeld reports whether button is in the pressed set.
func (s State) ButtonHeld(button string) bool {
	i := sort.SearchStrings(s.Buttons, button)
	return i < len(s.Buttons) && s.Buttons[i] == button
}

// Apply folds one event into a state and returns the result. The input state
// is not modified, so the fold can be tested independent of any timing. The
// state's Timestamp is not advanced here; frame cuts own that field.
func Apply(s State, ev Event) State {
	next := s
	switch ev.Kind {
	case KeyPress:
		next.Keys = insertSorted(s.Keys, ev.Key)
	case KeyRelease:
		next.Keys = removeSorted(s.Keys, ev.Key)
	case MouseMove:
		next.MouseX = ev.X
		next.MouseY = ev.Y
	case MouseButtonPress:
		next.Buttons = insertSorted(s.Buttons, ev.Button)
	case MouseButtonRelease:
		next.Buttons = removeSorted(s.Buttons, ev.Button)
	case MouseScroll:
		// Wheel steps carry no persistent state.
	}
	return next
}

// Diff synthesizes the events that transform prev into next, stamped with
// next's timestamp. Releases come before presses so a replayed stream never
// reports opposing inputs held at once unless the states themselves do.
func Diff(prev, next State) []Event {
	var evs []Event
	for _, k := range prev.Keys {
		if !next.KeyHeld(k) {
			evs = append(evs, Event{Timestamp: next.Timestamp, Kind: KeyRelease, Key: k})
		}
	}
	for _, b := range prev.Buttons {
		if !next.ButtonHeld(b) {
			evs = append(evs, Event{Timestamp: next.Timestamp, Kind: MouseButtonRelease, Button: b})
		}
	}
	for _, k := range next.Keys {
		if !prev.KeyHeld(k) {
			evs = append(evs, Event{Timestamp: next.Timestamp, Kind: KeyPress, Key: k})
		}
	}
	for _, b := range next.Buttons {
		if !prev.ButtonHeld(b) {
			evs = append(evs, Event{Timestamp: next.Timestamp, Kind: MouseButtonPress, Button: b})
		}
	}
	if next.MouseX != prev.MouseX || next.MouseY != prev.MouseY {
		evs = append(evs, Event{Timestamp: next.Timestamp, Kind: MouseMove, X: next.MouseX, Y: next.MouseY})
	}
	return evs
}

// insertSorted returns a copy of set with v added, keeping sort order.
// Inserting a present value returns an unchanged copy.
func insertSorted(set []string, v string) []string {
	i := sort.SearchStrings(set, v)
	if i < len(set) && set[i] == v {
		return append([]string(nil), set...)
	}
	out := make([]string, 0, len(set)+1)
	out = append(out, set[:i]...)
	out = append(out, v)
	out = append(out, set[i:]...)
	return out
}

// removeSorted returns a copy of set with v removed. Removing an absent
// value returns an unchanged copy.
func removeSorted(set []string, v string) []string {
	i := sort.SearchStrings(set, v)
	if i >= len(set) || set[i] != v {
		return append([]string(nil), set...)
	}
	out := make([]string, 0, len(set)-1)
	out = append(out, set[:i]...)
	out = append(out, set[i+1:]...)
	return out
}
