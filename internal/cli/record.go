package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/replaykit/joyrec/internal/capture"
	"github.com/replaykit/joyrec/internal/feed"
	"github.com/replaykit/joyrec/internal/logger"
	"github.com/replaykit/joyrec/internal/session"
)

var (
	recordName       string
	recordFPS        float64
	recordWidth      int
	recordHeight     int
	recordListen     string
	recordFrameClock string
	recordOutput     string
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a session from a connected producer",
	Long: `Record a session from a connected producer.

The command starts the feed listener and waits for a producer to connect
and stream input and frame messages. Events are folded into per-frame
input snapshots as they arrive. Stop with Ctrl+C; the session is then
written to the recordings directory and indexed in the catalog.

With --frame-clock internal the listener paces frames itself instead of
taking frame timestamps from the producer.

Example:
  joyrec record                          # wait on the default listen address
  joyrec record --name boss-fight       # name the session
  joyrec record --fps 60 --frame-clock internal`,
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().StringVarP(&recordName, "name", "n", "", "Session name (default: timestamped)")
	recordCmd.Flags().Float64Var(&recordFPS, "fps", 0, "Frame rate (default from config)")
	recordCmd.Flags().IntVar(&recordWidth, "width", 0, "Recorded width (default from config)")
	recordCmd.Flags().IntVar(&recordHeight, "height", 0, "Recorded height (default from config)")
	recordCmd.Flags().StringVar(&recordListen, "listen", "", "Feed listen address (default from config)")
	recordCmd.Flags().StringVar(&recordFrameClock, "frame-clock", "", "Frame timing source: feed or internal")
	recordCmd.Flags().StringVarP(&recordOutput, "output", "o", "", "Recordings directory (default from config)")
	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	if recordFPS > 0 {
		cfg.Capture.FPS = recordFPS
	}
	if recordWidth > 0 {
		cfg.Capture.Width = recordWidth
	}
	if recordHeight > 0 {
		cfg.Capture.Height = recordHeight
	}
	if recordListen != "" {
		cfg.Capture.ListenAddr = recordListen
	}
	if recordFrameClock != "" {
		cfg.Capture.FrameClock = recordFrameClock
	}
	if recordOutput != "" {
		cfg.Settings.RecordingsDir = recordOutput
	}

	switch cfg.Capture.FrameClock {
	case "feed", "internal":
	default:
		return fmt.Errorf("invalid frame clock %q, want feed or internal", cfg.Capture.FrameClock)
	}

	store, err := session.NewStore(cfg.Settings.RecordingsDir)
	if err != nil {
		return err
	}

	name := recordName
	if name == "" {
		name = session.ResolveName(store.Root(), time.Now())
	}
	dir, err := store.CreateSession(name)
	if err != nil {
		return err
	}

	rec := capture.NewRecorder(capture.Options{
		Name:   name,
		FPS:    cfg.Capture.FPS,
		Width:  cfg.Capture.Width,
		Height: cfg.Capture.Height,
	})

	useFeedFrames := cfg.Capture.FrameClock == "feed"
	srv := feed.NewServer(rec, feed.Options{
		Addr:          cfg.Capture.ListenAddr,
		UseFeedFrames: useFeedFrames,
	})
	if err := srv.Start(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var clock *capture.FrameClock
	clockErr := make(chan error, 1)
	if !useFeedFrames {
		clock = capture.NewFrameClock(cfg.Capture.FPS)
		go func() {
			clockErr <- clock.Run(ctx, func(ts float64) error {
				rec.HandleFrame(ts)
				return nil
			})
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	fmt.Printf("Recording %s on %s; press Ctrl+C to stop\n", name, cfg.Capture.ListenAddr)

	ticker := time.NewTicker(time.Duration(cfg.Capture.StatusIntervalSec) * time.Second)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-sigCh:
			break loop
		case err := <-clockErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("Frame clock failed")
			}
			break loop
		case <-ticker.C:
			stats := rec.Stats()
			logger.Info().
				Int("frames", stats.Frames).
				Int("events", stats.Events).
				Bool("producer", srv.Connected()).
				Str("elapsed", stats.Elapsed.Round(time.Second).String()).
				Msg("Recording")
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Feed listener shutdown error")
	}

	dropped := srv.DroppedFrames()
	if clock != nil {
		dropped += clock.Dropped()
	}

	events, states, meta := rec.Finalize(dropped)
	if err := session.Save(dir, events, states, meta); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	catalog, err := session.OpenCatalog(catalogPath(store.Root()))
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to open catalog, session saved but not indexed")
	} else {
		if _, err := catalog.Add(meta, dir); err != nil {
			logger.Warn().Err(err).Msg("Failed to index session")
		}
		_ = catalog.Close()
	}

	fmt.Printf("Saved %s: %d frames, %d events, %.1fs\n", name, meta.FrameCount, meta.EventCount, meta.Duration)
	return nil
}
