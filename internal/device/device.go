// Package device abstracts the virtual joystick that replay writes to. Sinks
// accept axis positions in a fixed numeric range and numbered button states;
// the uinput sink drives a kernel virtual gamepad on Linux, the log sink
// prints commands for dry runs on any platform.
package device

import (
	"errors"
	"sort"

	"github.com/replaykit/joyrec/internal/logger"
)

// Axis values span [AxisMin, AxisMax] with AxisCenter as the rest position,
// matching the 16-bit range of the virtual joystick the recordings were made
// against.
const (
	AxisMin    = 0
	AxisMax    = 0x8000
	AxisCenter = 0x4000
)

// ErrUnavailable reports that the virtual device cannot accept commands
// (driver missing, permission denied, device torn down). Fatal to a replay.
var ErrUnavailable = errors.New("virtual device unavailable")

// Sink accepts axis/button commands. Implementations hold no input-state
// logic; the translator decides what to write and when.
type Sink interface {
	SetAxis(axis string, value int) error
	SetButton(index int, pressed bool) error
	ReleaseAll() error
	Close() error
}

// axisCodes maps logical axis names to Linux ABS_* event codes. These names
// are the vocabulary mapping profiles are written in.
var axisCodes = map[string]uint16{
	"x":  0x00,
	"y":  0x01,
	"z":  0x02,
	"rx": 0x03,
	"ry": 0x04,
	"rz": 0x05,
}

// IsAxis reports whether name is a known axis name.
func IsAxis(name string) bool {
	_, ok := axisCodes[name]
	return ok
}

// AxisNames returns the known axis names in stable order.
func AxisNames() []string {
	names := make([]string, 0, len(axisCodes))
	for name := range axisCodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LogSink logs every command at debug level instead of driving hardware.
// Useful on platforms without a virtual joystick and for rehearsing a replay.
type LogSink struct{}

// NewLogSink returns a sink that only logs.
func NewLogSink() *LogSink {
	return &LogSink{}
}

// SetAxis logs an axis write.
func (s *LogSink) SetAxis(axis string, value int) error {
	logger.Debug().Str("axis", axis).Int("value", value).Msg("Device axis")
	return nil
}

// SetButton logs a button write.
func (s *LogSink) SetButton(index int, pressed bool) error {
	logger.Debug().Int("button", index).Bool("pressed", pressed).Msg("Device button")
	return nil
}

// ReleaseAll logs the release.
func (s *LogSink) ReleaseAll() error {
	logger.Debug().Msg("Device release all")
	return nil
}

// Close is a no-op.
func (s *LogSink) Close() error {
	return nil
}
