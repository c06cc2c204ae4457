package translate

import (
	"fmt"
	"math"
	"sort"

	"github.com/replaykit/joyrec/internal/config"
	"github.com/replaykit/joyrec/internal/device"
	"github.com/replaykit/joyrec/internal/input"
	"github.com/replaykit/joyrec/internal/logger"
)

// Translator converts recorded input events into virtual device commands
// using a mapping profile. Axis-bound keys ramp their axis toward an
// extreme while held and decay it back to center on release; mouse motion
// becomes flick deflections on the look axes; everything else maps to
// buttons. Events with no binding are dropped.
//
// Translator is not safe for concurrent use; the replay scheduler drives
// it from a single goroutine.
type Translator struct {
	mapping config.Mapping
	sink    device.Sink

	engines map[string]*axisEngine
	held    map[string][]string
	written map[string]int
	missing map[string]bool

	lastX, lastY int
	haveMousePos bool

	rampRate  float64
	decayRate float64
	flickRate float64

	axisNames []string
	maxButton int
}

// Describe validates a mapping and reports what it touches: the axis
// names, sorted, and the highest button index. The caller can size a
// virtual device from this before building a translator.
func Describe(mapping config.Mapping) ([]string, int, error) {
	if mapping.Sensitivity <= 0 {
		return nil, 0, fmt.Errorf("mapping sensitivity must be positive, got %v", mapping.Sensitivity)
	}

	axisSet := make(map[string]bool)
	for key, b := range mapping.Axes {
		if !device.IsAxis(b.Axis) {
			return nil, 0, fmt.Errorf("key %q bound to unknown axis %q", key, b.Axis)
		}
		if b.Direction != 1 && b.Direction != -1 {
			return nil, 0, fmt.Errorf("key %q has direction %d, want +1 or -1", key, b.Direction)
		}
		axisSet[b.Axis] = true
	}
	for _, axis := range []string{mapping.Look.XAxis, mapping.Look.YAxis} {
		if axis == "" {
			continue
		}
		if !device.IsAxis(axis) {
			return nil, 0, fmt.Errorf("look bound to unknown axis %q", axis)
		}
		axisSet[axis] = true
	}

	maxButton := 0
	for key, idx := range mapping.Buttons {
		if idx < 1 {
			return nil, 0, fmt.Errorf("key %q bound to invalid button %d", key, idx)
		}
		if idx > maxButton {
			maxButton = idx
		}
	}
	for name, idx := range mapping.MouseButtons {
		if idx < 1 {
			return nil, 0, fmt.Errorf("mouse button %q bound to invalid button %d", name, idx)
		}
		if idx > maxButton {
			maxButton = idx
		}
	}

	axisNames := make([]string, 0, len(axisSet))
	for axis := range axisSet {
		axisNames = append(axisNames, axis)
	}
	sort.Strings(axisNames)

	return axisNames, maxButton, nil
}

// New creates a translator that drives sink according to mapping.
func New(mapping config.Mapping, sink device.Sink) (*Translator, error) {
	axisNames, maxButton, err := Describe(mapping)
	if err != nil {
		return nil, err
	}

	t := &Translator{
		mapping:   mapping,
		sink:      sink,
		engines:   make(map[string]*axisEngine, len(axisNames)),
		held:      make(map[string][]string),
		written:   make(map[string]int, len(axisNames)),
		missing:   make(map[string]bool),
		rampRate:  msRate(mapping.RampMs),
		decayRate: msRate(mapping.DecayMs),
		flickRate: msRate(mapping.FlickDecayMs),
		axisNames: axisNames,
		maxButton: maxButton,
	}

	for _, axis := range axisNames {
		t.engines[axis] = &axisEngine{
			current: device.AxisCenter,
			target:  device.AxisCenter,
			rate:    t.decayRate,
		}
		t.written[axis] = device.AxisCenter
	}

	return t, nil
}

// msRate converts a center-to-extreme travel time in milliseconds into a
// rate in device units per second. Zero means instant.
func msRate(ms int) float64 {
	halfSpan := float64(device.AxisMax-device.AxisMin) / 2
	if ms <= 0 {
		return math.Inf(1)
	}
	return halfSpan * 1000 / float64(ms)
}

// Axes returns the axis names this profile can touch, sorted.
func (t *Translator) Axes() []string {
	out := make([]string, len(t.axisNames))
	copy(out, t.axisNames)
	return out
}

// MaxButton returns the highest button index any binding uses.
func (t *Translator) MaxButton() int {
	return t.maxButton
}

// HandleEvent applies one recorded event to the device. Unmapped
// identifiers are dropped and logged once each.
func (t *Translator) HandleEvent(ev input.Event) error {
	switch ev.Kind {
	case input.KeyPress:
		return t.handleKey(ev.Key, true)
	case input.KeyRelease:
		return t.handleKey(ev.Key, false)
	case input.MouseMove:
		return t.handleMouseMove(ev.X, ev.Y)
	case input.MouseButtonPress:
		return t.handleMouseButton(ev.Button, true)
	case input.MouseButtonRelease:
		return t.handleMouseButton(ev.Button, false)
	case input.MouseScroll:
		// wheel input has no joystick analogue
		return nil
	default:
		t.gap("event", string(ev.Kind))
		return nil
	}
}

func (t *Translator) handleKey(key string, pressed bool) error {
	if b, ok := t.mapping.Axes[key]; ok {
		if pressed {
			t.held[b.Axis] = appendKey(t.held[b.Axis], key)
		} else {
			t.held[b.Axis] = removeKey(t.held[b.Axis], key)
		}
		t.retarget(b.Axis)
		return nil
	}

	if idx, ok := t.mapping.Buttons[key]; ok {
		return t.sink.SetButton(idx, pressed)
	}

	t.gap("key", key)
	return nil
}

func (t *Translator) handleMouseButton(name string, pressed bool) error {
	if idx, ok := t.mapping.MouseButtons[name]; ok {
		return t.sink.SetButton(idx, pressed)
	}

	t.gap("mouse_button", name)
	return nil
}

// handleMouseMove turns the delta between consecutive recorded cursor
// positions into flick deflections on the look axes. The first move only
// seeds the reference position.
func (t *Translator) handleMouseMove(x, y int) error {
	if !t.haveMousePos {
		t.lastX, t.lastY = x, y
		t.haveMousePos = true
		return nil
	}

	dx := x - t.lastX
	dy := y - t.lastY
	t.lastX, t.lastY = x, y

	if dx != 0 && t.mapping.Look.XAxis != "" {
		if err := t.flick(t.mapping.Look.XAxis, dx); err != nil {
			return err
		}
	}
	if dy != 0 && t.mapping.Look.YAxis != "" {
		if err := t.flick(t.mapping.Look.YAxis, dy); err != nil {
			return err
		}
	}
	return nil
}

// flick deflects an axis immediately in proportion to the mouse delta and
// lets it decay back unless a held key is pinning the axis.
func (t *Translator) flick(axis string, delta int) error {
	e, ok := t.engines[axis]
	if !ok {
		return nil
	}

	span := float64(device.AxisMax - device.AxisMin)
	e.current = clamp(e.current+float64(delta)*span/t.mapping.Sensitivity, device.AxisMin, device.AxisMax)
	if len(t.held[axis]) == 0 {
		e.target = device.AxisCenter
		e.rate = t.flickRate
	}

	return t.writeAxis(axis)
}

// retarget points an axis engine at whatever should be driving it now:
// the most recently pressed held key wins, and an empty stack decays the
// axis back to center.
func (t *Translator) retarget(axis string) {
	e := t.engines[axis]
	stack := t.held[axis]
	if len(stack) == 0 {
		e.target = device.AxisCenter
		e.rate = t.decayRate
		return
	}

	b := t.mapping.Axes[stack[len(stack)-1]]
	if b.Direction > 0 {
		e.target = device.AxisMax
	} else {
		e.target = device.AxisMin
	}
	e.rate = t.rampRate
}

// Advance moves every axis engine forward by dt seconds and writes the
// values that changed.
func (t *Translator) Advance(dt float64) error {
	if dt <= 0 {
		return nil
	}
	for _, axis := range t.axisNames {
		t.engines[axis].advance(dt)
		if err := t.writeAxis(axis); err != nil {
			return err
		}
	}
	return nil
}

// Settled reports whether every axis has reached its target.
func (t *Translator) Settled() bool {
	for _, e := range t.engines {
		if !e.settled() {
			return false
		}
	}
	return true
}

// ReleaseAll centers every axis, forgets held keys, and releases the
// device. Safe to call repeatedly.
func (t *Translator) ReleaseAll() error {
	for _, axis := range t.axisNames {
		e := t.engines[axis]
		e.current = device.AxisCenter
		e.target = device.AxisCenter
		e.rate = t.decayRate
		t.written[axis] = device.AxisCenter
	}
	t.held = make(map[string][]string)
	t.haveMousePos = false
	return t.sink.ReleaseAll()
}

func (t *Translator) writeAxis(axis string) error {
	e := t.engines[axis]
	v := int(math.Round(e.current))
	if v == t.written[axis] {
		return nil
	}
	if err := t.sink.SetAxis(axis, v); err != nil {
		return err
	}
	t.written[axis] = v
	return nil
}

func (t *Translator) gap(kind, name string) {
	id := kind + ":" + name
	if t.missing[id] {
		return
	}
	t.missing[id] = true
	logger.Warn().
		Str(kind, name).
		Msg("No mapping, dropping")
}

func appendKey(stack []string, key string) []string {
	for _, k := range stack {
		if k == key {
			return stack
		}
	}
	return append(stack, key)
}

func removeKey(stack []string, key string) []string {
	for i, k := range stack {
		if k == key {
			return append(stack[:i], stack[i+1:]...)
		}
	}
	return stack
}
