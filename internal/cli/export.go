package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/replaykit/joyrec/internal/input"
	"github.com/replaykit/joyrec/internal/session"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <session>",
	Short: "Export a session as frame-aligned JSON lines",
	Long: `Export a session as frame-aligned JSON lines.

Each output line is one video frame: its index, timestamp, the cumulative
input state at the frame cut, and the raw events that fell inside the
frame's window. The stream is ready for annotation pipelines that join
inputs against extracted video frames.

Example:
  joyrec export dogfight-2 --out dogfight-2.jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Write to a file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}

// exportFrame is one line of export output.
type exportFrame struct {
	Frame  int           `json:"frame"`
	TS     float64       `json:"ts"`
	State  input.State   `json:"state"`
	Events []input.Event `json:"events,omitempty"`
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	quietLogging()

	dir, err := resolveSessionDir(cfg.Settings.RecordingsDir, args[0])
	if err != nil {
		return err
	}

	events, states, _, err := session.Load(dir)
	if err != nil {
		return fmt.Errorf("cannot export %s: %w", args[0], err)
	}

	out := os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	w := bufio.NewWriter(out)
	enc := json.NewEncoder(w)

	// Events are ordered and frame cuts are monotonic, so a single cursor
	// attributes each event to the first frame whose cut it precedes. A
	// desync frame repeats the previous cut and therefore gets no events.
	cursor := 0
	for i, st := range states {
		frame := exportFrame{Frame: i, TS: st.Timestamp, State: st}
		for cursor < len(events) && events[cursor].Timestamp <= st.Timestamp {
			frame.Events = append(frame.Events, events[cursor])
			cursor++
		}
		if err := enc.Encode(frame); err != nil {
			return fmt.Errorf("failed to write frame: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}

	if cursor < len(events) {
		fmt.Fprintf(os.Stderr, "warning: %d events after the last frame cut were not exported\n", len(events)-cursor)
	}
	if exportOut != "" {
		fmt.Fprintf(os.Stderr, "Exported %d frames to %s\n", len(states), exportOut)
	}
	return nil
}
