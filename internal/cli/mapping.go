package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var mappingCmd = &cobra.Command{
	Use:   "mapping",
	Short: "Inspect the input mapping",
	Long:  "Commands for listing and testing the active input mapping.",
}

var mappingListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all active bindings",
	RunE:  runMappingList,
}

var mappingTestCmd = &cobra.Command{
	Use:   "test <input>",
	Short: "Resolve one input name against the mapping",
	Long: `Resolve one input name against the mapping.

Looks the name up as a key and as a mouse button and prints what it would
drive on the virtual joystick, or that it would be dropped.

Example:
  joyrec mapping test w
  joyrec mapping test left`,
	Args: cobra.ExactArgs(1),
	RunE: runMappingTest,
}

func init() {
	mappingCmd.AddCommand(mappingListCmd)
	mappingCmd.AddCommand(mappingTestCmd)
	rootCmd.AddCommand(mappingCmd)
}

func runMappingList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	quietLogging()
	m := cfg.Mapping

	fmt.Println("Active Input Mapping")
	fmt.Println("====================")

	if len(m.Axes) > 0 {
		fmt.Println("\nAxes:")
		for _, key := range sortedKeys(m.Axes) {
			b := m.Axes[key]
			fmt.Printf("  - %-8s -> %s (direction %+d)\n", key, b.Axis, b.Direction)
		}
	}

	if len(m.Buttons) > 0 {
		fmt.Println("\nButtons:")
		for _, key := range sortedKeys(m.Buttons) {
			fmt.Printf("  - %-8s -> button %d\n", key, m.Buttons[key])
		}
	}

	if len(m.MouseButtons) > 0 {
		fmt.Println("\nMouse buttons:")
		for _, name := range sortedKeys(m.MouseButtons) {
			fmt.Printf("  - %-8s -> button %d\n", name, m.MouseButtons[name])
		}
	}

	fmt.Println("\nLook:")
	fmt.Printf("  mouse x -> %s, mouse y -> %s (sensitivity %g)\n", m.Look.XAxis, m.Look.YAxis, m.Sensitivity)

	fmt.Println("\nTunables:")
	fmt.Printf("  ramp %dms, decay %dms, flick decay %dms\n", m.RampMs, m.DecayMs, m.FlickDecayMs)

	return nil
}

func runMappingTest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	quietLogging()
	m := cfg.Mapping
	name := args[0]

	found := false
	if b, ok := m.Axes[name]; ok {
		direction := "maximum"
		if b.Direction < 0 {
			direction = "minimum"
		}
		fmt.Printf("key %q drives axis %s toward its %s\n", name, b.Axis, direction)
		found = true
	}
	if idx, ok := m.Buttons[name]; ok {
		fmt.Printf("key %q presses button %d\n", name, idx)
		found = true
	}
	if idx, ok := m.MouseButtons[name]; ok {
		fmt.Printf("mouse %q presses button %d\n", name, idx)
		found = true
	}

	if !found {
		fmt.Printf("no binding for %q; its events would be dropped\n", name)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
