package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/todopro/todopro-cli/internal/model"
	"github.com/todopro/todopro-cli/internal/sync"
)

// Repo adapts one collection of the local store to the sync.Repository
// contract. It is also used directly by the CLI task commands.
type Repo struct {
	store      *Store
	collection model.Collection
}

var _ sync.Repository = (*Repo)(nil)

// Collection implements sync.Repository.
func (r *Repo) Collection() model.Collection {
	return r.collection
}

// ListChangedSince implements sync.Repository. Tombstones are included;
// a zero since returns every record.
func (r *Repo) ListChangedSince(ctx context.Context, since time.Time) ([]model.Record, error) {
	rows, err := r.store.conn.QueryContext(ctx, `
		SELECT id, updated_at, version, deleted_at, protected, fields
		FROM records
		WHERE collection = ? AND updated_at > ?
		ORDER BY updated_at, version`,
		string(r.collection), formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s changed since %s: %w", r.collection, formatTime(since), err)
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s records: %w", r.collection, err)
	}
	return records, nil
}

// GetByID implements sync.Repository.
func (r *Repo) GetByID(ctx context.Context, id string) (model.Record, error) {
	row := r.store.conn.QueryRowContext(ctx, `
		SELECT id, updated_at, version, deleted_at, protected, fields
		FROM records
		WHERE collection = ? AND id = ?`,
		string(r.collection), id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Record{}, fmt.Errorf("%s %s: %w", r.collection, id, sync.ErrNotFound)
	}
	if err != nil {
		return model.Record{}, err
	}
	return rec, nil
}

// Create implements sync.Repository. A missing id gets a fresh UUID and a
// missing envelope gets version 1 and the current time; envelope values
// supplied by a sync apply are preserved so both stores converge on the
// source's timestamps.
func (r *Repo) Create(ctx context.Context, rec model.Record) (model.Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	if rec.Version < 1 {
		rec.Version = 1
	}
	if len(rec.Fields) == 0 {
		rec.Fields = []byte("{}")
	}

	res, err := r.store.conn.ExecContext(ctx, `
		INSERT OR IGNORE INTO records (collection, id, updated_at, version, deleted_at, protected, fields)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(r.collection), rec.ID, formatTime(rec.UpdatedAt), rec.Version,
		nullTime(rec.DeletedAt), boolInt(rec.Protected), string(rec.Fields))
	if err != nil {
		return model.Record{}, fmt.Errorf("failed to create %s %s: %w", r.collection, rec.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Record{}, fmt.Errorf("%s %s already exists", r.collection, rec.ID)
	}
	return rec, nil
}

// Update implements sync.Repository. The stored version is bumped by
// exactly one over the current row regardless of the incoming envelope.
// Protection is sticky: a protected record stays protected.
func (r *Repo) Update(ctx context.Context, id string, rec model.Record) (model.Record, error) {
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return model.Record{}, err
	}

	rec.ID = id
	rec.Version = existing.Version + 1
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	if existing.Protected {
		rec.Protected = true
	}
	if len(rec.Fields) == 0 {
		rec.Fields = existing.Fields
	}

	_, err = r.store.conn.ExecContext(ctx, `
		UPDATE records
		SET updated_at = ?, version = ?, deleted_at = ?, protected = ?, fields = ?
		WHERE collection = ? AND id = ?`,
		formatTime(rec.UpdatedAt), rec.Version, nullTime(rec.DeletedAt),
		boolInt(rec.Protected), string(rec.Fields),
		string(r.collection), id)
	if err != nil {
		return model.Record{}, fmt.Errorf("failed to update %s %s: %w", r.collection, id, err)
	}
	return rec, nil
}

// ListActive returns live (non-tombstoned) records for CLI listings,
// ordered by update time. Not part of the sync contract.
func (r *Repo) ListActive(ctx context.Context) ([]model.Record, error) {
	rows, err := r.store.conn.QueryContext(ctx, `
		SELECT id, updated_at, version, deleted_at, protected, fields
		FROM records
		WHERE collection = ? AND deleted_at IS NULL
		ORDER BY updated_at`,
		string(r.collection))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.collection, err)
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s records: %w", r.collection, err)
	}
	return records, nil
}

// Delete marks a record as a tombstone. Protected records refuse
// deletion. Used by the CLI; sync applies tombstones through Update.
func (r *Repo) Delete(ctx context.Context, id string) error {
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.Protected {
		return fmt.Errorf("%s %s is protected and cannot be deleted", r.collection, id)
	}

	now := time.Now().UTC()
	existing.DeletedAt = &now
	existing.UpdatedAt = now
	_, err = r.Update(ctx, id, existing)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (model.Record, error) {
	var (
		rec       model.Record
		updatedAt string
		deletedAt sql.NullString
		protected int
		fields    string
	)
	if err := row.Scan(&rec.ID, &updatedAt, &rec.Version, &deletedAt, &protected, &fields); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Record{}, err
		}
		return model.Record{}, fmt.Errorf("failed to scan record: %w", err)
	}

	ts, err := parseTime(updatedAt)
	if err != nil {
		return model.Record{}, err
	}
	rec.UpdatedAt = ts

	if deletedAt.Valid {
		dt, err := parseTime(deletedAt.String)
		if err != nil {
			return model.Record{}, err
		}
		rec.DeletedAt = &dt
	}

	rec.Protected = protected != 0
	rec.Fields = []byte(fields)
	return rec, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
