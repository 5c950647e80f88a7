package sync

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	stdsync "sync"
	"time"

	"github.com/natefinch/atomic"

	"github.com/todopro/todopro-cli/internal/model"
)

// Conflict records an entity whose local and remote copies both changed
// since the last sync cursor. Conflicts persist until the user resolves
// them; the engine only appends and queries, it never removes entries.
type Conflict struct {
	Collection     model.Collection `json:"collection"`
	ID             string           `json:"id"`
	LocalVersion   int64            `json:"local_version"`
	RemoteVersion  int64            `json:"remote_version"`
	LocalSnapshot  json.RawMessage  `json:"local_snapshot,omitempty"`
	RemoteSnapshot json.RawMessage  `json:"remote_snapshot,omitempty"`
	DetectedAt     time.Time        `json:"detected_at"`
}

// Tracker persists detected conflicts in a JSON file under the profile
// directory and answers whether unresolved conflicts exist.
//
// The tracker is append-only from the engine's point of view. Clearing an
// entry is a user action performed through the CLI once the divergence
// has been resolved by hand.
type Tracker struct {
	path   string
	logger *log.Logger

	mu        stdsync.Mutex
	conflicts []Conflict
}

// OpenTracker loads the conflict file at path. A missing or corrupt file
// starts an empty tracker; detection must keep working even if previous
// state was lost. If logger is nil, a default stderr logger is used.
func OpenTracker(path string, logger *log.Logger) *Tracker {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}

	t := &Tracker{path: path, logger: logger}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			t.logger.Printf("WARNING: failed to read conflicts %s: %v (starting empty)", path, err)
		}
		return t
	}
	if err := json.Unmarshal(data, &t.conflicts); err != nil {
		t.logger.Printf("WARNING: corrupt conflict file %s: %v (starting empty)", path, err)
		t.conflicts = nil
	}
	return t
}

// Add appends a conflict and persists the file. An unresolved entry for
// the same (collection, id) is never overwritten: Add reports added=false
// and leaves the original in place so the first detected divergence is
// what the user reviews.
func (t *Tracker) Add(c Conflict) (added bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, existing := range t.conflicts {
		if existing.Collection == c.Collection && existing.ID == c.ID {
			return false, nil
		}
	}

	t.conflicts = append(t.conflicts, c)
	if err := t.save(); err != nil {
		t.conflicts = t.conflicts[:len(t.conflicts)-1]
		return false, err
	}
	return true, nil
}

// Has reports whether any unresolved conflicts exist.
func (t *Tracker) Has() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conflicts) > 0
}

// HasFor reports whether unresolved conflicts exist for one collection.
func (t *Tracker) HasFor(c model.Collection) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, existing := range t.conflicts {
		if existing.Collection == c {
			return true
		}
	}
	return false
}

// List returns conflicts ordered by detection time. An empty collection
// returns everything.
func (t *Tracker) List(c model.Collection) []Conflict {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Conflict
	for _, existing := range t.conflicts {
		if c == "" || existing.Collection == c {
			out = append(out, existing)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DetectedAt.Before(out[j].DetectedAt)
	})
	return out
}

// Count returns the number of unresolved conflicts.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conflicts)
}

// Clear removes the entry for (collection, id) after the user resolved it
// by hand. Clearing with an empty id removes every entry for the
// collection; clearing with both empty removes everything. Used by the
// CLI only, never by the engine.
func (t *Tracker) Clear(c model.Collection, id string) (removed int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.conflicts[:0]
	for _, existing := range t.conflicts {
		match := (c == "" || existing.Collection == c) && (id == "" || existing.ID == id)
		if match {
			removed++
			continue
		}
		kept = append(kept, existing)
	}
	if removed == 0 {
		return 0, nil
	}
	t.conflicts = kept
	if err := t.save(); err != nil {
		return 0, err
	}
	return removed, nil
}

// save writes the conflict file. Callers must hold t.mu.
func (t *Tracker) save() error {
	list := t.conflicts
	if list == nil {
		list = []Conflict{}
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal conflicts: %w", err)
	}
	if err := atomic.WriteFile(t.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write conflicts %s: %w", t.path, err)
	}
	return nil
}
