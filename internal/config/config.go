package config

// Config is the complete joyrec configuration.
type Config struct {
	Version  string          `yaml:"version"`
	Settings Settings        `yaml:"settings"`
	Capture  CaptureSettings `yaml:"capture"`
	Replay   ReplaySettings  `yaml:"replay"`
	Mapping  Mapping         `yaml:"mapping"`
}

// Settings contains global configuration settings.
type Settings struct {
	LogLevel      string `yaml:"log_level"`
	LogFile       string `yaml:"log_file,omitempty"`
	RecordingsDir string `yaml:"recordings_dir"`
}

// CaptureSettings configures the recording side.
type CaptureSettings struct {
	FPS        float64 `yaml:"fps"`
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	ListenAddr string  `yaml:"listen_addr"`
	// FrameClock selects where frame timestamps come from: "feed" takes them
	// from the connected screen producer, "internal" paces them locally.
	FrameClock        string `yaml:"frame_clock"`
	StatusIntervalSec int    `yaml:"status_interval_sec"`
}

// ReplaySettings configures the playback side.
type ReplaySettings struct {
	CountdownSec int     `yaml:"countdown_sec"`
	Speed        float64 `yaml:"speed"`
	Device       string  `yaml:"device"`
	TickMs       int     `yaml:"tick_ms"`
	Humanize     bool    `yaml:"humanize,omitempty"`
}

// AxisBinding ties a key to an axis and a direction: +1 deflects toward the
// axis maximum, -1 toward the minimum.
type AxisBinding struct {
	Axis      string `yaml:"axis"`
	Direction int    `yaml:"direction"`
}

// LookBinding names the axis pair that mouse flicks land on.
type LookBinding struct {
	XAxis string `yaml:"x_axis"`
	YAxis string `yaml:"y_axis"`
}

// Mapping is the translation profile from recorded inputs to virtual device
// commands. Loaded once, read-only during a session.
type Mapping struct {
	// Sensitivity is how many pixels of mouse travel equal a full axis sweep.
	Sensitivity float64 `yaml:"sensitivity"`
	// RampMs is the center-to-extreme time for a held key's axis.
	RampMs int `yaml:"ramp_ms"`
	// DecayMs is the extreme-to-center time after release.
	DecayMs int `yaml:"decay_ms"`
	// FlickDecayMs is how fast a mouse flick deflection re-centers.
	FlickDecayMs int `yaml:"flick_decay_ms"`

	Axes         map[string]AxisBinding `yaml:"axes,omitempty"`
	Buttons      map[string]int         `yaml:"buttons,omitempty"`
	MouseButtons map[string]int         `yaml:"mouse_buttons,omitempty"`
	Look         LookBinding            `yaml:"look"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Version: "1",
		Settings: Settings{
			LogLevel:      "info",
			RecordingsDir: "recordings",
		},
		Capture: CaptureSettings{
			FPS:               30,
			Width:             1920,
			Height:            1080,
			ListenAddr:        "127.0.0.1:7341",
			FrameClock:        "feed",
			StatusIntervalSec: 10,
		},
		Replay: ReplaySettings{
			CountdownSec: 3,
			Speed:        1.0,
			Device:       "uinput",
			TickMs:       10,
		},
		Mapping: DefaultMapping(),
	}
}

// DefaultMapping is the flight-sim profile the recordings in this project
// were made for: WASD on the translation axes, Q/E roll, Shift/Ctrl
// throttle, mouse look on the rotation pair, weapons and utilities on
// buttons.
func DefaultMapping() Mapping {
	return Mapping{
		Sensitivity:  100,
		RampMs:       100,
		DecayMs:      150,
		FlickDecayMs: 80,
		Axes: map[string]AxisBinding{
			"w":     {Axis: "y", Direction: 1},
			"s":     {Axis: "y", Direction: -1},
			"a":     {Axis: "x", Direction: -1},
			"d":     {Axis: "x", Direction: 1},
			"q":     {Axis: "rz", Direction: -1},
			"e":     {Axis: "rz", Direction: 1},
			"shift": {Axis: "z", Direction: 1},
			"ctrl":  {Axis: "z", Direction: -1},
		},
		Buttons: map[string]int{
			"space": 1,
			"r":     2,
			"t":     3,
			"f":     4,
			"g":     5,
			"n":     6,
			"v":     7,
			"tab":   8,
			"x":     9,
			"c":     10,
			"enter": 11,
			"esc":   12,
		},
		MouseButtons: map[string]int{
			"left":   1,
			"right":  2,
			"middle": 3,
		},
		Look: LookBinding{XAxis: "rx", YAxis: "ry"},
	}
}
