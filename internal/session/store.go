package session

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/replaykit/joyrec/internal/input"
)

// Store manages the recordings root directory that session directories are
// created under.
type Store struct {
	root string
}

// NewStore ensures the recordings root exists and returns a store for it.
// The root is resolved to an absolute path so catalog entries stay valid
// from any working directory.
func NewStore(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve recordings directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create recordings directory: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the recordings root directory.
func (s *Store) Root() string {
	return s.root
}

// CreateSession makes the directory for a new session and returns its path.
func (s *Store) CreateSession(name string) (string, error) {
	dir := filepath.Join(s.root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create session directory: %w", err)
	}
	return dir, nil
}

// Save writes the three session artifacts into dir. The metadata document is
// written last: its presence is what marks the session complete, so a crash
// partway through leaves a directory Load will reject rather than misread.
func Save(dir string, events []input.Event, states []input.State, meta *Meta) error {
	if err := writeJSONL(filepath.Join(dir, EventsFile), len(events), func(i int) any { return events[i] }); err != nil {
		return fmt.Errorf("failed to write event log: %w", err)
	}
	if err := writeJSONL(filepath.Join(dir, StatesFile), len(states), func(i int) any { return states[i] }); err != nil {
		return fmt.Errorf("failed to write frame states: %w", err)
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, MetaFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// Load reconstructs the three artifacts from dir. A directory without a
// readable metadata document returns ErrIncompleteSession; no partial data
// is returned in that case.
func Load(dir string) ([]input.Event, []input.State, *Meta, error) {
	meta, err := LoadMeta(dir)
	if err != nil {
		return nil, nil, nil, err
	}

	events := []input.Event{}
	if err := readJSONL(filepath.Join(dir, EventsFile), func() any {
		events = append(events, input.Event{})
		return &events[len(events)-1]
	}); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to read event log: %w", err)
	}

	states := []input.State{}
	if err := readJSONL(filepath.Join(dir, StatesFile), func() any {
		states = append(states, input.State{})
		return &states[len(states)-1]
	}); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to read frame states: %w", err)
	}

	return events, states, meta, nil
}

// LoadMeta reads only the metadata artifact. Missing or unparseable metadata
// is reported as ErrIncompleteSession wrapped with the directory.
func LoadMeta(dir string) (*Meta, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetaFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s has no %s", ErrIncompleteSession, dir, MetaFile)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrIncompleteSession, dir, err)
	}

	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%w: %s: unreadable metadata: %v", ErrIncompleteSession, dir, err)
	}
	return &meta, nil
}

func writeJSONL(path string, n int, record func(i int) any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i := 0; i < n; i++ {
		if err := enc.Encode(record(i)); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}

func readJSONL(path string, next func() any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		if err := json.Unmarshal(raw, next()); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	return scanner.Err()
}
