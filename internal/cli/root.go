package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/replaykit/joyrec/internal/config"
	"github.com/replaykit/joyrec/internal/logger"
)

// Version information set via ldflags
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	verbose    bool
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "joyrec",
	Short: "Record and replay game input sessions",
	Long: `Joyrec records synchronized input and frame streams from a game
session and replays the inputs later through a virtual joystick.

A producer (screen capture tool, input hook, or test harness) connects to
the feed listener over a websocket and streams keyboard, mouse, and frame
messages. Joyrec folds them into per-frame input snapshots, stores the
session on disk, and indexes it in a local catalog. Replay translates the
recorded events into virtual device commands with configurable key
bindings, ramp times, and mouse-look sensitivity.

Configuration lives in ~/.joyrec/config.yaml; --config applies another
file on top of it.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("joyrec %s\n", Version)
		fmt.Printf("  commit: %s\n", Commit)
		fmt.Printf("  built:  %s\n", Date)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Apply an extra config file")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads the merged configuration for a command run.
func loadConfig() (*config.Config, error) {
	loader, err := config.NewLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create config loader: %w", err)
	}
	return loader.Load()
}

// setupLogging initializes the logger from flags and config.
func setupLogging(cfg *config.Config) {
	if verbose {
		_ = logger.Init("debug", cfg.Settings.LogFile)
	} else if cfg.Settings.LogLevel != "" {
		_ = logger.Init(cfg.Settings.LogLevel, cfg.Settings.LogFile)
	} else {
		_ = logger.Init("info", cfg.Settings.LogFile)
	}
}

// quietLogging initializes logging for table and export commands whose
// stdout must stay clean.
func quietLogging() {
	if verbose {
		_ = logger.Init("debug", "")
	} else {
		logger.InitQuiet()
	}
}
