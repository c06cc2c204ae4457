package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewLoader(t *testing.T) {
	loader, err := NewLoader("")
	if err != nil {
		t.Fatalf("NewLoader failed: %v", err)
	}
	if loader == nil {
		t.Fatal("NewLoader returned nil")
	}

	if loader.globalPath == "" {
		t.Error("globalPath is empty")
	}
	if filepath.Base(loader.globalPath) != "config.yaml" {
		t.Errorf("expected config.yaml, got %s", filepath.Base(loader.globalPath))
	}
}

func TestNewLoader_WithExplicitPath(t *testing.T) {
	loader, err := NewLoader("/tmp/custom.yaml")
	if err != nil {
		t.Fatalf("NewLoader failed: %v", err)
	}

	if loader.explicitPath != "/tmp/custom.yaml" {
		t.Errorf("got explicitPath=%q, want %q", loader.explicitPath, "/tmp/custom.yaml")
	}
}

func TestLoader_Load_NoConfigFiles(t *testing.T) {
	tmpDir := t.TempDir()

	loader := &Loader{
		globalPath: filepath.Join(tmpDir, ".joyrec", "config.yaml"),
	}

	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Should return default config
	if cfg.Version != "1" {
		t.Errorf("got Version=%q, want \"1\"", cfg.Version)
	}
	if cfg.Capture.FPS != 30 {
		t.Errorf("got FPS=%v, want 30", cfg.Capture.FPS)
	}
	if cfg.Replay.CountdownSec != 3 {
		t.Errorf("got CountdownSec=%d, want 3", cfg.Replay.CountdownSec)
	}
}

func TestLoader_Load_GlobalOnly(t *testing.T) {
	tmpDir := t.TempDir()

	globalDir := filepath.Join(tmpDir, ".joyrec")
	if err := os.MkdirAll(globalDir, 0755); err != nil {
		t.Fatal(err)
	}

	globalConfig := `version: "1"
settings:
  log_level: debug
  recordings_dir: /data/recordings
capture:
  fps: 60
`
	if err := os.WriteFile(filepath.Join(globalDir, "config.yaml"), []byte(globalConfig), 0644); err != nil {
		t.Fatal(err)
	}

	loader := &Loader{
		globalPath: filepath.Join(globalDir, "config.yaml"),
	}

	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Settings.LogLevel != "debug" {
		t.Errorf("got LogLevel=%q, want \"debug\"", cfg.Settings.LogLevel)
	}
	if cfg.Settings.RecordingsDir != "/data/recordings" {
		t.Errorf("got RecordingsDir=%q, want \"/data/recordings\"", cfg.Settings.RecordingsDir)
	}
	if cfg.Capture.FPS != 60 {
		t.Errorf("got FPS=%v, want 60", cfg.Capture.FPS)
	}

	// Defaults preserved for everything the file didn't mention
	if cfg.Capture.ListenAddr != "127.0.0.1:7341" {
		t.Errorf("got ListenAddr=%q, want default", cfg.Capture.ListenAddr)
	}
	if cfg.Replay.Speed != 1.0 {
		t.Errorf("got Speed=%v, want 1.0", cfg.Replay.Speed)
	}
}

func TestLoader_Load_ExplicitOverridesGlobal(t *testing.T) {
	tmpDir := t.TempDir()

	globalDir := filepath.Join(tmpDir, ".joyrec")
	if err := os.MkdirAll(globalDir, 0755); err != nil {
		t.Fatal(err)
	}

	globalConfig := `version: "1"
settings:
  log_level: info
capture:
  fps: 60
  listen_addr: 0.0.0.0:7341
`
	if err := os.WriteFile(filepath.Join(globalDir, "config.yaml"), []byte(globalConfig), 0644); err != nil {
		t.Fatal(err)
	}

	explicitConfig := `settings:
  log_level: debug
replay:
  speed: 2.0
  device: log
`
	explicitPath := filepath.Join(tmpDir, "session.yaml")
	if err := os.WriteFile(explicitPath, []byte(explicitConfig), 0644); err != nil {
		t.Fatal(err)
	}

	loader := &Loader{
		globalPath:   filepath.Join(globalDir, "config.yaml"),
		explicitPath: explicitPath,
	}

	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Explicit file overrides log_level
	if cfg.Settings.LogLevel != "debug" {
		t.Errorf("got LogLevel=%q, want \"debug\"", cfg.Settings.LogLevel)
	}

	// Global fps preserved since explicit file didn't specify
	if cfg.Capture.FPS != 60 {
		t.Errorf("got FPS=%v, want 60", cfg.Capture.FPS)
	}
	if cfg.Capture.ListenAddr != "0.0.0.0:7341" {
		t.Errorf("got ListenAddr=%q, want \"0.0.0.0:7341\"", cfg.Capture.ListenAddr)
	}

	if cfg.Replay.Speed != 2.0 {
		t.Errorf("got Speed=%v, want 2.0", cfg.Replay.Speed)
	}
	if cfg.Replay.Device != "log" {
		t.Errorf("got Device=%q, want \"log\"", cfg.Replay.Device)
	}
}

func TestLoader_Load_ExplicitFileMissing(t *testing.T) {
	tmpDir := t.TempDir()

	loader := &Loader{
		globalPath:   filepath.Join(tmpDir, ".joyrec", "config.yaml"),
		explicitPath: filepath.Join(tmpDir, "nope.yaml"),
	}

	_, err := loader.Load()
	if err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestLoader_Load_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()

	globalDir := filepath.Join(tmpDir, ".joyrec")
	if err := os.MkdirAll(globalDir, 0755); err != nil {
		t.Fatal(err)
	}

	invalidYAML := `invalid: yaml: content: [}`
	if err := os.WriteFile(filepath.Join(globalDir, "config.yaml"), []byte(invalidYAML), 0644); err != nil {
		t.Fatal(err)
	}

	loader := &Loader{
		globalPath: filepath.Join(globalDir, "config.yaml"),
	}

	_, err := loader.Load()
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoader_Load_MappingMerge(t *testing.T) {
	tmpDir := t.TempDir()

	globalDir := filepath.Join(tmpDir, ".joyrec")
	if err := os.MkdirAll(globalDir, 0755); err != nil {
		t.Fatal(err)
	}

	// Rebind one key and add another; the rest of the table must survive.
	globalConfig := `mapping:
  sensitivity: 250
  axes:
    w:
      axis: ry
      direction: -1
    j:
      axis: x
      direction: 1
  buttons:
    m: 13
`
	if err := os.WriteFile(filepath.Join(globalDir, "config.yaml"), []byte(globalConfig), 0644); err != nil {
		t.Fatal(err)
	}

	loader := &Loader{
		globalPath: filepath.Join(globalDir, "config.yaml"),
	}

	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Mapping.Sensitivity != 250 {
		t.Errorf("got Sensitivity=%v, want 250", cfg.Mapping.Sensitivity)
	}

	if got := cfg.Mapping.Axes["w"]; got != (AxisBinding{Axis: "ry", Direction: -1}) {
		t.Errorf("got w binding %+v, want rebind to ry/-1", got)
	}
	if got := cfg.Mapping.Axes["j"]; got != (AxisBinding{Axis: "x", Direction: 1}) {
		t.Errorf("got j binding %+v, want x/+1", got)
	}
	if got := cfg.Mapping.Axes["s"]; got != (AxisBinding{Axis: "y", Direction: -1}) {
		t.Errorf("got s binding %+v, want default preserved", got)
	}

	if cfg.Mapping.Buttons["m"] != 13 {
		t.Errorf("got m button %d, want 13", cfg.Mapping.Buttons["m"])
	}
	if cfg.Mapping.Buttons["space"] != 1 {
		t.Errorf("got space button %d, want default 1", cfg.Mapping.Buttons["space"])
	}

	// Untouched tunables keep defaults
	if cfg.Mapping.RampMs != 100 {
		t.Errorf("got RampMs=%d, want 100", cfg.Mapping.RampMs)
	}
	if cfg.Mapping.Look.XAxis != "rx" {
		t.Errorf("got Look.XAxis=%q, want \"rx\"", cfg.Mapping.Look.XAxis)
	}
}
