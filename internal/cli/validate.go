package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/replaykit/joyrec/internal/config"
	"github.com/replaykit/joyrec/internal/translate"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration files",
	Long: `Validate configuration files.

Checks that the configuration parses as YAML and that the input mapping is
usable: axis names are real, directions are sane, and button indices are
positive. Files are validated as they apply at run time, merged over the
built-in defaults.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	loader, err := config.NewLoader(configFile)
	if err != nil {
		return fmt.Errorf("failed to create config loader: %w", err)
	}

	if configFile != "" {
		fmt.Printf("Validating config: %s\n", configFile)
		if err := validateConfigFile(loader, configFile); err != nil {
			return err
		}
		fmt.Println("  Valid!")
		return nil
	}

	globalPath := loader.GlobalConfigPath()
	if !config.Exists(globalPath) {
		fmt.Println("No configuration files found.")
		fmt.Println("Run 'joyrec init' to create one.")
		return nil
	}

	fmt.Printf("Validating global config: %s\n", globalPath)
	if err := validateConfigFile(loader, globalPath); err != nil {
		return err
	}
	fmt.Println("  Valid!")
	return nil
}

func validateConfigFile(loader *config.Loader, path string) error {
	cfg, err := loader.LoadFromFile(path)
	if err != nil {
		return fmt.Errorf("  Failed to parse: %w", err)
	}

	switch cfg.Capture.FrameClock {
	case "feed", "internal":
		// Valid
	default:
		return fmt.Errorf("  Invalid frame_clock: %s (must be feed or internal)", cfg.Capture.FrameClock)
	}

	switch cfg.Replay.Device {
	case "uinput", "log":
		// Valid
	default:
		return fmt.Errorf("  Invalid device: %s (must be uinput or log)", cfg.Replay.Device)
	}

	axes, maxButton, err := translate.Describe(cfg.Mapping)
	if err != nil {
		return fmt.Errorf("  Invalid mapping: %w", err)
	}

	fmt.Printf("  Mapping drives %d axes and %d buttons\n", len(axes), maxButton)
	return nil
}
