// Package model defines the synchronizable entity envelope shared by every
// todopro collection.
//
// All eight collections (tasks, projects, labels, contexts, sections,
// reminders, filters, templates) carry the same envelope: a stable id, an
// updated_at timestamp set by whichever store performs a write, a version
// counter bumped by exactly one on every accepted write, and an optional
// deleted_at tombstone. Domain-specific fields travel opaquely in Fields so
// the sync engine can reconcile any collection with one code path.
package model

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"
)

// Collection identifies one of the synchronizable entity collections.
type Collection string

const (
	Tasks     Collection = "tasks"
	Projects  Collection = "projects"
	Labels    Collection = "labels"
	Contexts  Collection = "contexts"
	Sections  Collection = "sections"
	Reminders Collection = "reminders"
	Filters   Collection = "filters"
	Templates Collection = "templates"
)

// Collections returns all collections in sync order. Projects sync before
// tasks and sections so referenced parents exist when a fresh store is
// populated.
func Collections() []Collection {
	return []Collection{
		Projects,
		Labels,
		Contexts,
		Sections,
		Tasks,
		Reminders,
		Filters,
		Templates,
	}
}

// Valid reports whether c names a known collection.
func (c Collection) Valid() bool {
	for _, known := range Collections() {
		if c == known {
			return true
		}
	}
	return false
}

// Record is the storage-neutral form of a synchronizable entity.
//
// The envelope fields drive reconciliation; Fields holds the collection's
// domain payload (see payload.go) and is never interpreted by the sync
// engine beyond equality comparison.
type Record struct {
	ID        string          `json:"id"`
	UpdatedAt time.Time       `json:"updated_at"`
	Version   int64           `json:"version"`
	DeletedAt *time.Time      `json:"deleted_at,omitempty"`
	Protected bool            `json:"protected,omitempty"`
	Fields    json.RawMessage `json:"fields,omitempty"`
}

// Deleted reports whether the record is a tombstone.
func (r *Record) Deleted() bool {
	return r.DeletedAt != nil
}

// Validate checks the envelope invariants.
func (r *Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("id is required")
	}
	if r.UpdatedAt.IsZero() {
		return fmt.Errorf("updated_at is required")
	}
	if r.Version < 1 {
		return fmt.Errorf("version must be at least 1 (got %d)", r.Version)
	}
	return nil
}

// EqualState reports whether two records carry the same observable state:
// identical domain fields, the same tombstone status, and the same
// protected flag. Envelope bookkeeping (version, updated_at) is ignored so
// that re-applying an already-propagated change is detected as a no-op.
func (r *Record) EqualState(other *Record) bool {
	if r.Deleted() != other.Deleted() {
		return false
	}
	if r.Protected != other.Protected {
		return false
	}
	return equalJSON(r.Fields, other.Fields)
}

// equalJSON compares two JSON documents structurally, ignoring key order
// and whitespace. Invalid or empty documents only compare equal to other
// invalid or empty documents with the same raw bytes.
func equalJSON(a, b json.RawMessage) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	var av, bv any
	if err := json.Unmarshal(a, &av); err != nil {
		return string(a) == string(b)
	}
	if err := json.Unmarshal(b, &bv); err != nil {
		return false
	}
	return reflect.DeepEqual(av, bv)
}
