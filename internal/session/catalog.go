package session

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/replaykit/joyrec/internal/logger"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

// CatalogEntry is one indexed session.
type CatalogEntry struct {
	ID            string
	Name          string
	Path          string
	StartedAt     time.Time
	Duration      float64
	FPS           float64
	Width         int
	Height        int
	FrameCount    int
	EventCount    int
	DroppedFrames int64
}

// Catalog is the SQLite index of finished sessions. The artifacts themselves
// stay in their session directories; the catalog only makes them listable
// and resolvable by name or id.
type Catalog struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// OpenCatalog opens (creating if needed) the catalog database at dbPath.
func OpenCatalog(dbPath string) (*Catalog, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create catalog directory: %w", err)
	}

	// WAL mode keeps a recording writer from blocking list/show readers.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	c := &Catalog{db: db, dbPath: dbPath}
	if err := c.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize catalog schema: %w", err)
	}

	logger.Debug().Str("path", dbPath).Msg("Opened session catalog")
	return c, nil
}

func (c *Catalog) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		path TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		duration REAL NOT NULL,
		fps REAL NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		frame_count INTEGER NOT NULL,
		event_count INTEGER NOT NULL,
		dropped_frames INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);
	`

	_, err := c.db.Exec(schema)
	return err
}

// Add indexes a finished session stored at dir.
func (c *Catalog) Add(meta *Meta, dir string) (*CatalogEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addLocked(meta, dir)
}

func (c *Catalog) addLocked(meta *Meta, dir string) (*CatalogEntry, error) {
	entry := &CatalogEntry{
		ID:            uuid.NewString(),
		Name:          meta.Name,
		Path:          dir,
		StartedAt:     meta.StartedAt,
		Duration:      meta.Duration,
		FPS:           meta.FPS,
		Width:         meta.Resolution.Width,
		Height:        meta.Resolution.Height,
		FrameCount:    meta.FrameCount,
		EventCount:    meta.EventCount,
		DroppedFrames: meta.Screen.DroppedFrames,
	}

	_, err := c.db.Exec(
		`INSERT INTO sessions (id, name, path, started_at, duration, fps, width, height, frame_count, event_count, dropped_frames)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   path = excluded.path,
		   started_at = excluded.started_at,
		   duration = excluded.duration,
		   fps = excluded.fps,
		   width = excluded.width,
		   height = excluded.height,
		   frame_count = excluded.frame_count,
		   event_count = excluded.event_count,
		   dropped_frames = excluded.dropped_frames`,
		entry.ID, entry.Name, entry.Path, entry.StartedAt.Unix(), entry.Duration,
		entry.FPS, entry.Width, entry.Height, entry.FrameCount, entry.EventCount,
		entry.DroppedFrames,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to index session: %w", err)
	}
	return entry, nil
}

// Get resolves a session by id or name.
func (c *Catalog) Get(ref string) (*CatalogEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, err := scanEntry(c.db.QueryRow(
		selectColumns+` FROM sessions WHERE id = ? OR name = ?`, ref, ref,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session not found: %s", ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return entry, nil
}

// List returns all indexed sessions, newest first.
func (c *Catalog) List() ([]*CatalogEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rows, err := c.db.Query(selectColumns + ` FROM sessions ORDER BY started_at DESC, name DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*CatalogEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Delete removes a session from the index by id or name. The artifacts on
// disk are the caller's to remove.
func (c *Catalog) Delete(ref string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	result, err := c.db.Exec(`DELETE FROM sessions WHERE id = ? OR name = ?`, ref, ref)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("session not found: %s", ref)
	}
	return nil
}

// Rebuild drops the index and rescans root, reindexing every directory with
// a complete metadata artifact. Incomplete sessions are skipped with a log
// line; the count of indexed sessions is returned.
func (c *Catalog) Rebuild(root string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.Exec(`DELETE FROM sessions`); err != nil {
		return 0, fmt.Errorf("failed to clear catalog: %w", err)
	}

	dirents, err := os.ReadDir(root)
	if err != nil {
		return 0, fmt.Errorf("failed to read recordings directory: %w", err)
	}

	indexed := 0
	for _, d := range dirents {
		if !d.IsDir() {
			continue
		}
		dir := filepath.Join(root, d.Name())
		meta, err := LoadMeta(dir)
		if err != nil {
			logger.Debug().Str("dir", dir).Err(err).Msg("Skipping session during rebuild")
			continue
		}
		if _, err := c.addLocked(meta, dir); err != nil {
			return indexed, err
		}
		indexed++
	}
	return indexed, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

const selectColumns = `SELECT id, name, path, started_at, duration, fps, width, height, frame_count, event_count, dropped_frames`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*CatalogEntry, error) {
	var entry CatalogEntry
	var startedAt int64

	if err := row.Scan(
		&entry.ID, &entry.Name, &entry.Path, &startedAt, &entry.Duration,
		&entry.FPS, &entry.Width, &entry.Height, &entry.FrameCount,
		&entry.EventCount, &entry.DroppedFrames,
	); err != nil {
		return nil, err
	}

	entry.StartedAt = time.Unix(startedAt, 0)
	return &entry, nil
}
