package sync

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	stdsync "sync"
	"time"

	"github.com/natefinch/atomic"

	"github.com/todopro/todopro-cli/internal/model"
)

// State persists the last successful sync cursor per collection and
// direction in a JSON file under the profile directory.
//
// A cursor is only written after a collection's pass fully commits, so a
// crash mid-pass leaves it at its prior value and the next pass re-fetches
// from there. Reading a missing or corrupt state file is safe: it simply
// means "no prior cursor" and triggers a full resync. A failed write is
// not safe to ignore and is returned to the caller, which must fail the
// enclosing collection pass.
type State struct {
	path   string
	logger *log.Logger

	mu      stdsync.Mutex
	cursors map[string]time.Time
}

// stateFile is the on-disk shape, matching ~/.todopro/<profile>/sync-state.json.
type stateFile struct {
	LastSync map[string]time.Time `json:"last_sync"`
}

// OpenState loads sync state from path. If logger is nil, a default
// logger writing to stderr is used.
func OpenState(path string, logger *log.Logger) *State {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}

	s := &State{
		path:    path,
		logger:  logger,
		cursors: make(map[string]time.Time),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Printf("WARNING: failed to read sync state %s: %v (treating as never synced)", path, err)
		}
		return s
	}

	var f stateFile
	if err := json.Unmarshal(data, &f); err != nil {
		s.logger.Printf("WARNING: corrupt sync state %s: %v (treating as never synced)", path, err)
		return s
	}
	if f.LastSync != nil {
		s.cursors = f.LastSync
	}
	return s
}

// LastSync returns the cursor for the given direction and collection.
// The second return is false if the pair has never completed a pass.
func (s *State) LastSync(dir Direction, c model.Collection) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts, ok := s.cursors[cursorKey(dir, c)]
	return ts, ok
}

// SetLastSync records the cursor for the given direction and collection
// and persists the full state file atomically. Last write wins; calling
// with the same value twice is a no-op on disk content.
func (s *State) SetLastSync(dir Direction, c model.Collection, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cursors[cursorKey(dir, c)] = ts.UTC()
	return s.save()
}

// All returns a copy of every known cursor, keyed as "<collection> (<direction>)".
func (s *State) All() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]time.Time, len(s.cursors))
	for k, v := range s.cursors {
		out[k] = v
	}
	return out
}

// save writes the state file. Callers must hold s.mu.
func (s *State) save() error {
	data, err := json.MarshalIndent(stateFile{LastSync: s.cursors}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sync state: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write sync state %s: %w", s.path, err)
	}
	return nil
}

// cursorKey builds the state-file key for a (direction, collection) pair.
func cursorKey(dir Direction, c model.Collection) string {
	return fmt.Sprintf("%s (%s)", c, dir)
}
