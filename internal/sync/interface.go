package sync

import (
	"context"
	"errors"
	"time"

	"github.com/todopro/todopro-cli/internal/model"
)

// ErrNotFound is returned (wrapped) by Repository.GetByID when no record
// exists with the requested id.
var ErrNotFound = errors.New("record not found")

// Repository is the narrow storage contract the sync engine is written
// against. Both the local embedded store and the remote service expose one
// Repository per collection; the engine never touches storage internals.
//
// Implementations must satisfy the envelope invariants from package model:
// Create and Update are accepted writes and therefore set updated_at and
// bump version, honouring envelope values supplied by a sync apply so the
// two stores converge on the source's timestamps.
type Repository interface {
	// Collection identifies which collection this repository serves.
	Collection() model.Collection

	// ListChangedSince returns every record with updated_at strictly
	// after since, tombstones included. A zero since means all records
	// (full resync). Order is unspecified; the engine sorts.
	ListChangedSince(ctx context.Context, since time.Time) ([]model.Record, error)

	// GetByID returns the record with the given id, or an error wrapping
	// ErrNotFound.
	GetByID(ctx context.Context, id string) (model.Record, error)

	// Create inserts a new record and returns it as stored.
	Create(ctx context.Context, rec model.Record) (model.Record, error)

	// Update overwrites the record with the given id and returns it as
	// stored. The stored version is bumped by exactly one.
	Update(ctx context.Context, id string, rec model.Record) (model.Record, error)
}

// Endpoint is one side of a sync pass: the full set of per-collection
// repositories for either the local store or the remote service.
type Endpoint map[model.Collection]Repository

// Direction identifies which way a pass moves data.
type Direction string

const (
	// Pull reconciles remote changes into the local store.
	Pull Direction = "pull"
	// Push reconciles local changes into the remote service.
	Push Direction = "push"
)

// transienter is implemented by errors worth retrying, such as remote
// timeouts and 5xx responses. Authoritative rejections (4xx) and local
// storage errors do not implement it.
type transienter interface {
	Transient() bool
}

// IsTransient reports whether err (or any error it wraps) marks itself as
// transient.
func IsTransient(err error) bool {
	var t transienter
	return errors.As(err, &t) && t.Transient()
}
