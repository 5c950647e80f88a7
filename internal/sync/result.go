package sync

import (
	"time"

	"github.com/todopro/todopro-cli/internal/model"
)

// Stats tallies per-record outcomes for one collection during a pass.
type Stats struct {
	Created    int `json:"created"`
	Updated    int `json:"updated"`
	Skipped    int `json:"skipped"`
	Conflicted int `json:"conflicted"`
	Errors     int `json:"errors"`
}

// add merges other into s.
func (s *Stats) add(other Stats) {
	s.Created += other.Created
	s.Updated += other.Updated
	s.Skipped += other.Skipped
	s.Conflicted += other.Conflicted
	s.Errors += other.Errors
}

// Result is the immutable outcome of one sync pass. It is produced once
// per pass and returned to the caller; the engine never mutates it after
// construction.
type Result struct {
	Direction Direction
	Started   time.Time
	Duration  time.Duration

	// Collections holds per-collection tallies.
	Collections map[model.Collection]Stats

	// Conflicts lists the conflicts newly raised during this pass, in
	// the order collections are processed.
	Conflicts []Conflict

	// Failed maps collections whose pass raised a fatal error (source
	// fetch failure, cursor write failure, conflict persistence
	// failure). Per-record errors are counted in Stats.Errors instead.
	Failed map[model.Collection]error
}

// Total sums the tallies across all collections.
func (r *Result) Total() Stats {
	var total Stats
	for _, s := range r.Collections {
		total.add(s)
	}
	return total
}

// HasConflicts reports whether this pass raised any new conflicts.
func (r *Result) HasConflicts() bool {
	return len(r.Conflicts) > 0
}

// OK reports whether every collection's pass completed without a fatal
// error and without unretryable record errors.
func (r *Result) OK() bool {
	if len(r.Failed) > 0 {
		return false
	}
	return r.Total().Errors == 0
}
