package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	globalConfigDir = ".joyrec"
	configFileName  = "config.yaml"
)

// Loader handles loading and merging configuration files
type Loader struct {
	globalPath   string
	explicitPath string
}

// NewLoader creates a new configuration loader. explicitPath is an optional
// config file given on the command line; it is applied on top of the global
// config.
func NewLoader(explicitPath string) (*Loader, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	return &Loader{
		globalPath:   filepath.Join(homeDir, globalConfigDir, configFileName),
		explicitPath: explicitPath,
	}, nil
}

// Load loads and merges configuration from all sources
func (l *Loader) Load() (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	// Load global config if exists
	globalCfg, err := l.loadFile(l.globalPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load global config: %w", err)
	}
	if globalCfg != nil {
		cfg = mergeConfigs(cfg, globalCfg)
	}

	// An explicitly named config must exist; a missing global one is fine.
	if l.explicitPath != "" {
		explicitCfg, err := l.loadFile(l.explicitPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = mergeConfigs(cfg, explicitCfg)
	}

	return cfg, nil
}

// LoadFromFile loads a single config file merged over the built-in
// defaults, mirroring how the file would apply at run time.
func (l *Loader) LoadFromFile(path string) (*Config, error) {
	cfg, err := l.loadFile(path)
	if err != nil {
		return nil, err
	}
	return mergeConfigs(DefaultConfig(), cfg), nil
}

func (l *Loader) loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return &cfg, nil
}

// mergeConfigs merges two configurations, with override taking precedence
func mergeConfigs(base, override *Config) *Config {
	result := &Config{
		Version: coalesce(override.Version, base.Version),
		Settings: Settings{
			LogLevel:      coalesce(override.Settings.LogLevel, base.Settings.LogLevel),
			LogFile:       coalesce(override.Settings.LogFile, base.Settings.LogFile),
			RecordingsDir: coalesce(override.Settings.RecordingsDir, base.Settings.RecordingsDir),
		},
		Capture: mergeCaptureSettings(base.Capture, override.Capture),
		Replay:  mergeReplaySettings(base.Replay, override.Replay),
		Mapping: mergeMapping(base.Mapping, override.Mapping),
	}

	return result
}

// mergeCaptureSettings merges capture settings, with override taking precedence for set values
func mergeCaptureSettings(base, override CaptureSettings) CaptureSettings {
	result := base

	if override.FPS != 0 {
		result.FPS = override.FPS
	}
	if override.Width != 0 {
		result.Width = override.Width
	}
	if override.Height != 0 {
		result.Height = override.Height
	}
	if override.ListenAddr != "" {
		result.ListenAddr = override.ListenAddr
	}
	if override.FrameClock != "" {
		result.FrameClock = override.FrameClock
	}
	if override.StatusIntervalSec != 0 {
		result.StatusIntervalSec = override.StatusIntervalSec
	}

	return result
}

// mergeReplaySettings merges replay settings, with override taking precedence for set values
func mergeReplaySettings(base, override ReplaySettings) ReplaySettings {
	result := base

	if override.CountdownSec != 0 {
		result.CountdownSec = override.CountdownSec
	}
	if override.Speed != 0 {
		result.Speed = override.Speed
	}
	if override.Device != "" {
		result.Device = override.Device
	}
	if override.TickMs != 0 {
		result.TickMs = override.TickMs
	}
	// Since we can't distinguish "not set" from "set to false" for bool,
	// humanize only merges in the enabling direction
	if override.Humanize {
		result.Humanize = true
	}

	return result
}

// mergeMapping merges translation profiles. Scalar tunables override when
// set; the binding tables merge key-wise so a config file can rebind a
// single key without restating the whole table.
func mergeMapping(base, override Mapping) Mapping {
	result := base

	if override.Sensitivity != 0 {
		result.Sensitivity = override.Sensitivity
	}
	if override.RampMs != 0 {
		result.RampMs = override.RampMs
	}
	if override.DecayMs != 0 {
		result.DecayMs = override.DecayMs
	}
	if override.FlickDecayMs != 0 {
		result.FlickDecayMs = override.FlickDecayMs
	}
	if override.Look.XAxis != "" {
		result.Look.XAxis = override.Look.XAxis
	}
	if override.Look.YAxis != "" {
		result.Look.YAxis = override.Look.YAxis
	}

	result.Axes = mergeAxisBindings(base.Axes, override.Axes)
	result.Buttons = mergeIntBindings(base.Buttons, override.Buttons)
	result.MouseButtons = mergeIntBindings(base.MouseButtons, override.MouseButtons)

	return result
}

// mergeAxisBindings combines axis bindings from base and override.
// Bindings for the same key are replaced, new keys are added.
func mergeAxisBindings(base, override map[string]AxisBinding) map[string]AxisBinding {
	if len(override) == 0 {
		return base
	}
	if len(base) == 0 {
		return override
	}

	result := make(map[string]AxisBinding, len(base)+len(override))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range override {
		result[k] = v
	}

	return result
}

// mergeIntBindings combines button bindings from base and override.
// Bindings for the same key are replaced, new keys are added.
func mergeIntBindings(base, override map[string]int) map[string]int {
	if len(override) == 0 {
		return base
	}
	if len(base) == 0 {
		return override
	}

	result := make(map[string]int, len(base)+len(override))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range override {
		result[k] = v
	}

	return result
}

func coalesce(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// GlobalConfigPath returns the path to the global config file
func (l *Loader) GlobalConfigPath() string {
	return l.globalPath
}

// Exists reports whether a config file exists at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
