package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/todopro/todopro-cli/internal/model"
	"github.com/todopro/todopro-cli/internal/sync"
)

// Repo adapts one collection of the remote service to the sync.Repository
// contract. Paths follow the service's REST layout: /v1/{collection}/.
type Repo struct {
	client     *Client
	collection model.Collection
}

var _ sync.Repository = (*Repo)(nil)

// Collection implements sync.Repository.
func (r *Repo) Collection() model.Collection {
	return r.collection
}

func (r *Repo) basePath() string {
	return fmt.Sprintf("/v1/%s/", r.collection)
}

func (r *Repo) recordPath(id string) string {
	return fmt.Sprintf("/v1/%s/%s", r.collection, url.PathEscape(id))
}

// ListChangedSince implements sync.Repository using the service's
// updated_since filter. Tombstones are requested explicitly so deletions
// propagate.
func (r *Repo) ListChangedSince(ctx context.Context, since time.Time) ([]model.Record, error) {
	q := url.Values{"include_deleted": {"true"}}
	if !since.IsZero() {
		q.Set("updated_since", since.UTC().Format(time.RFC3339Nano))
	}

	var records []model.Record
	if err := r.client.do(ctx, http.MethodGet, r.basePath()+"?"+q.Encode(), nil, &records); err != nil {
		return nil, fmt.Errorf("failed to list remote %s: %w", r.collection, err)
	}
	return records, nil
}

// GetByID implements sync.Repository, mapping 404 to sync.ErrNotFound.
func (r *Repo) GetByID(ctx context.Context, id string) (model.Record, error) {
	var rec model.Record
	err := r.client.do(ctx, http.MethodGet, r.recordPath(id), nil, &rec)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.NotFound() {
			return model.Record{}, fmt.Errorf("remote %s %s: %w", r.collection, id, sync.ErrNotFound)
		}
		return model.Record{}, fmt.Errorf("failed to get remote %s %s: %w", r.collection, id, err)
	}
	return rec, nil
}

// Create implements sync.Repository.
func (r *Repo) Create(ctx context.Context, rec model.Record) (model.Record, error) {
	var created model.Record
	if err := r.client.do(ctx, http.MethodPost, r.basePath(), rec, &created); err != nil {
		return model.Record{}, fmt.Errorf("failed to create remote %s %s: %w", r.collection, rec.ID, err)
	}
	return created, nil
}

// Update implements sync.Repository.
func (r *Repo) Update(ctx context.Context, id string, rec model.Record) (model.Record, error) {
	var updated model.Record
	if err := r.client.do(ctx, http.MethodPut, r.recordPath(id), rec, &updated); err != nil {
		return model.Record{}, fmt.Errorf("failed to update remote %s %s: %w", r.collection, id, err)
	}
	return updated, nil
}
