package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/replaykit/joyrec/internal/config"
	"github.com/replaykit/joyrec/internal/device"
	"github.com/replaykit/joyrec/internal/input"
	"github.com/replaykit/joyrec/internal/replay"
	"github.com/replaykit/joyrec/internal/session"
	"github.com/replaykit/joyrec/internal/translate"
)

var (
	replaySpeed     float64
	replayCountdown int
	replayDevice    string
	replayHumanize  bool
	replayFrom      string
	replayTick      int
)

var replayCmd = &cobra.Command{
	Use:   "replay <session>",
	Short: "Replay a recorded session through a virtual joystick",
	Long: `Replay a recorded session through a virtual joystick.

The session argument is a catalog name or id, or a path to a session
directory. Recorded events are translated into virtual device commands
using the configured mapping: axis keys ramp their axis while held, mouse
motion becomes look flicks, everything else is buttons.

A countdown before playback gives you time to focus the game window.
Ctrl+C stops playback and releases the device.

Example:
  joyrec replay session_20260825_143002
  joyrec replay boss-fight --speed 1.5
  joyrec replay boss-fight --device log   # print commands instead of injecting
  joyrec replay boss-fight --from frames  # reconstruct inputs from snapshots`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 0, "Playback rate multiplier (default from config)")
	replayCmd.Flags().IntVar(&replayCountdown, "countdown", -1, "Seconds before playback starts (default from config)")
	replayCmd.Flags().StringVar(&replayDevice, "device", "", "Output device: uinput or log")
	replayCmd.Flags().BoolVar(&replayHumanize, "humanize", false, "Add small random delays to event timing")
	replayCmd.Flags().StringVar(&replayFrom, "from", "events", "Replay source: events or frames")
	replayCmd.Flags().IntVar(&replayTick, "tick", 0, "Axis update interval in milliseconds")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	if replaySpeed > 0 {
		cfg.Replay.Speed = replaySpeed
	}
	if replayCountdown >= 0 {
		cfg.Replay.CountdownSec = replayCountdown
	}
	if replayDevice != "" {
		cfg.Replay.Device = replayDevice
	}
	if replayHumanize {
		cfg.Replay.Humanize = true
	}
	if replayTick > 0 {
		cfg.Replay.TickMs = replayTick
	}

	dir, err := resolveSessionDir(cfg.Settings.RecordingsDir, args[0])
	if err != nil {
		return err
	}

	events, states, meta, err := session.Load(dir)
	if err != nil {
		return fmt.Errorf("cannot replay %s: %w", args[0], err)
	}

	stream := events
	switch replayFrom {
	case "events":
	case "frames":
		stream = eventsFromStates(states)
	default:
		return fmt.Errorf("invalid replay source %q, want events or frames", replayFrom)
	}

	if len(stream) == 0 {
		return fmt.Errorf("session %s has no events to replay", meta.Name)
	}

	sink, err := openSink(cfg)
	if err != nil {
		if errors.Is(err, device.ErrUnavailable) {
			return fmt.Errorf("%w (try --device log)", err)
		}
		return err
	}
	defer func() { _ = sink.Close() }()

	tr, err := translate.New(cfg.Mapping, sink)
	if err != nil {
		return err
	}

	sched := replay.NewScheduler(tr, replay.Options{
		Speed:        cfg.Replay.Speed,
		CountdownSec: cfg.Replay.CountdownSec,
		TickMs:       cfg.Replay.TickMs,
		Humanize:     cfg.Replay.Humanize,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Replaying %s: %d events over %.1fs (speed %gx)\n", meta.Name, len(stream), meta.Duration, cfg.Replay.Speed)

	if err := sched.Play(ctx, stream); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println("Replay interrupted")
			return nil
		}
		return err
	}

	fmt.Println("Replay finished")
	return nil
}

// resolveSessionDir turns a catalog name or id, or a directory path, into
// a session directory. Uncataloged directories under the recordings root
// still resolve by name.
func resolveSessionDir(root, ref string) (string, error) {
	catalog, err := session.OpenCatalog(catalogPath(root))
	if err == nil {
		entry, getErr := catalog.Get(ref)
		_ = catalog.Close()
		if getErr == nil {
			return entry.Path, nil
		}
	}

	if info, statErr := os.Stat(filepath.Join(root, ref)); statErr == nil && info.IsDir() {
		return filepath.Join(root, ref), nil
	}
	if info, statErr := os.Stat(ref); statErr == nil && info.IsDir() {
		return ref, nil
	}

	return "", fmt.Errorf("session not found: %s", ref)
}

func openSink(cfg *config.Config) (device.Sink, error) {
	switch cfg.Replay.Device {
	case "uinput":
		axes, maxButton, err := translate.Describe(cfg.Mapping)
		if err != nil {
			return nil, err
		}
		return device.NewUinput("joyrec", axes, maxButton)
	case "log":
		return device.NewLogSink(), nil
	default:
		return nil, fmt.Errorf("unknown device %q, want uinput or log", cfg.Replay.Device)
	}
}

// eventsFromStates reconstructs an event stream from the per-frame
// snapshots: whatever changed between consecutive frames becomes presses,
// releases, and moves at the frame boundary.
func eventsFromStates(states []input.State) []input.Event {
	var out []input.Event
	prev := input.NewState()
	for _, st := range states {
		out = append(out, input.Diff(prev, st)...)
		prev = st
	}
	return out
}
