package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/replaykit/joyrec/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage recorded sessions",
	Long: `Manage recorded sessions.

Sessions live as directories under the recordings root and are indexed in
a local catalog for listing and lookup by name or id.

Commands:
  list    - List recorded sessions
  show    - Show one session in detail
  delete  - Delete a session and its files
  rebuild - Rebuild the catalog from the directories on disk`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded sessions",
	RunE:  runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session>",
	Short: "Show one session in detail",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session>",
	Short: "Delete a session and its files",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

var sessionsRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the catalog from the directories on disk",
	Long: `Rebuild the catalog from the directories on disk.

Useful after copying session directories from another machine or removing
them by hand. Incomplete sessions are skipped.`,
	RunE: runSessionsRebuild,
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	sessionsCmd.AddCommand(sessionsRebuildCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func catalogPath(root string) string {
	return filepath.Join(root, "catalog.db")
}

// openCatalog loads config and opens the session catalog under the
// recordings root, returning both along with the resolved root.
func openCatalog() (*session.Catalog, string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, "", err
	}
	quietLogging()

	store, err := session.NewStore(cfg.Settings.RecordingsDir)
	if err != nil {
		return nil, "", err
	}

	catalog, err := session.OpenCatalog(catalogPath(store.Root()))
	if err != nil {
		return nil, "", err
	}
	return catalog, store.Root(), nil
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	catalog, _, err := openCatalog()
	if err != nil {
		return err
	}
	defer func() { _ = catalog.Close() }()

	entries, err := catalog.List()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("No sessions recorded.")
		return nil
	}

	fmt.Printf("%-28s  %-15s  %9s  %7s  %7s  %s\n", "NAME", "AGE", "DURATION", "FRAMES", "EVENTS", "RESOLUTION")
	fmt.Println(strings.Repeat("-", 86))

	for _, e := range entries {
		name := e.Name
		if len(name) > 26 {
			name = name[:23] + "..."
		}

		fmt.Printf("%-28s  %-15s  %8.1fs  %7d  %7d  %dx%d\n",
			name,
			humanize.Time(e.StartedAt),
			e.Duration,
			e.FrameCount,
			e.EventCount,
			e.Width, e.Height,
		)
	}

	return nil
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	catalog, _, err := openCatalog()
	if err != nil {
		return err
	}
	defer func() { _ = catalog.Close() }()

	entry, err := catalog.Get(args[0])
	if err != nil {
		return err
	}

	meta, err := session.LoadMeta(entry.Path)
	if err != nil {
		return fmt.Errorf("session %s: %w", entry.Name, err)
	}

	fmt.Printf("Session: %s\n", meta.Name)
	fmt.Printf("ID: %s\n", entry.ID)
	fmt.Printf("Path: %s\n", entry.Path)
	fmt.Printf("Started: %s\n", meta.StartedAt.Format(time.RFC3339))
	fmt.Printf("Duration: %.1fs\n", meta.Duration)
	fmt.Printf("FPS: %g\n", meta.FPS)
	fmt.Printf("Resolution: %dx%d\n", meta.Resolution.Width, meta.Resolution.Height)
	fmt.Printf("Frames: %d (dropped %d)\n", meta.FrameCount, meta.Screen.DroppedFrames)
	if meta.Input.Suppressed > 0 {
		fmt.Printf("Events: %d (%d auto-repeats suppressed)\n", meta.EventCount, meta.Input.Suppressed)
	} else {
		fmt.Printf("Events: %d\n", meta.EventCount)
	}
	fmt.Println()

	if len(meta.Input.EventCounts) > 0 {
		fmt.Println("Events by kind:")
		kinds := make([]string, 0, len(meta.Input.EventCounts))
		for k := range meta.Input.EventCounts {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Printf("  %-22s %d\n", k, meta.Input.EventCounts[k])
		}
		fmt.Println()
	}

	fmt.Println("Artifacts:")
	for _, f := range []string{session.EventsFile, session.StatesFile, session.MetaFile} {
		info, statErr := os.Stat(filepath.Join(entry.Path, f))
		if statErr != nil {
			fmt.Printf("  %-16s missing\n", f)
			continue
		}
		fmt.Printf("  %-16s %s\n", f, humanize.Bytes(uint64(info.Size())))
	}

	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	catalog, _, err := openCatalog()
	if err != nil {
		return err
	}
	defer func() { _ = catalog.Close() }()

	entry, err := catalog.Get(args[0])
	if err != nil {
		return err
	}

	if err := catalog.Delete(entry.ID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if err := os.RemoveAll(entry.Path); err != nil {
		return fmt.Errorf("failed to remove session directory: %w", err)
	}

	fmt.Printf("Deleted %s (%s)\n", entry.Name, entry.Path)
	return nil
}

func runSessionsRebuild(cmd *cobra.Command, args []string) error {
	catalog, root, err := openCatalog()
	if err != nil {
		return err
	}
	defer func() { _ = catalog.Close() }()

	count, err := catalog.Rebuild(root)
	if err != nil {
		return fmt.Errorf("failed to rebuild catalog: %w", err)
	}

	fmt.Printf("Indexed %d sessions from %s\n", count, root)
	return nil
}
