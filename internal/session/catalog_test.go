package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/replaykit/joyrec/internal/input"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := OpenCatalog(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("OpenCatalog failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCatalogAddAndGet(t *testing.T) {
	c := openTestCatalog(t)

	meta := sampleMeta("session_20250601_120000")
	entry, err := c.Add(meta, "/recordings/session_20250601_120000")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if entry.ID == "" {
		t.Error("Add returned entry without id")
	}

	byName, err := c.Get("session_20250601_120000")
	if err != nil {
		t.Fatalf("Get by name failed: %v", err)
	}
	if byName.Path != "/recordings/session_20250601_120000" {
		t.Errorf("path = %q, want /recordings/session_20250601_120000", byName.Path)
	}
	if byName.FPS != 30 || byName.Width != 2560 || byName.Height != 1440 {
		t.Errorf("entry = %+v, want fps 30 at 2560x1440", byName)
	}
	if !byName.StartedAt.Equal(meta.StartedAt.Truncate(time.Second)) {
		t.Errorf("started at = %v, want %v", byName.StartedAt, meta.StartedAt.Truncate(time.Second))
	}

	byID, err := c.Get(entry.ID)
	if err != nil {
		t.Fatalf("Get by id failed: %v", err)
	}
	if byID.Name != meta.Name {
		t.Errorf("Get by id returned %q, want %q", byID.Name, meta.Name)
	}
}

func TestCatalogGetMissing(t *testing.T) {
	c := openTestCatalog(t)

	_, err := c.Get("session_unknown")
	if err == nil || !strings.Contains(err.Error(), "session not found") {
		t.Errorf("Get error = %v, want session not found", err)
	}
}

func TestCatalogListNewestFirst(t *testing.T) {
	c := openTestCatalog(t)

	older := sampleMeta("session_20250601_120000")
	newer := sampleMeta("session_20250601_130000")
	newer.StartedAt = older.StartedAt.Add(time.Hour)

	if _, err := c.Add(older, "/r/a"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Add(newer, "/r/b"); err != nil {
		t.Fatal(err)
	}

	entries, err := c.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("list length = %d, want 2", len(entries))
	}
	if entries[0].Name != "session_20250601_130000" {
		t.Errorf("first entry = %q, want the newer session", entries[0].Name)
	}
}

func TestCatalogDelete(t *testing.T) {
	c := openTestCatalog(t)

	if _, err := c.Add(sampleMeta("session_x"), "/r/x"); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete("session_x"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := c.Get("session_x"); err == nil {
		t.Error("Get succeeded after delete")
	}
	if err := c.Delete("session_x"); err == nil {
		t.Error("Delete of missing session succeeded, want error")
	}
}

func TestCatalogRebuild(t *testing.T) {
	c := openTestCatalog(t)
	root := t.TempDir()

	completeDir := filepath.Join(root, "session_complete")
	if err := os.MkdirAll(completeDir, 0755); err != nil {
		t.Fatal(err)
	}
	states := []input.State{{Timestamp: 0.033, Keys: []string{}, Buttons: []string{}}}
	if err := Save(completeDir, []input.Event{}, states, sampleMeta("session_complete")); err != nil {
		t.Fatal(err)
	}

	// A crashed recording: directory exists, metadata never written.
	if err := os.MkdirAll(filepath.Join(root, "session_incomplete"), 0755); err != nil {
		t.Fatal(err)
	}

	n, err := c.Rebuild(root)
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if n != 1 {
		t.Errorf("rebuild indexed %d sessions, want 1", n)
	}

	entry, err := c.Get("session_complete")
	if err != nil {
		t.Fatalf("Get after rebuild failed: %v", err)
	}
	if entry.Path != completeDir {
		t.Errorf("path = %q, want %q", entry.Path, completeDir)
	}
}
