package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/todopro/todopro-cli/internal/model"
	"github.com/todopro/todopro-cli/internal/sync"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := Open(filepath.Join(t.TempDir(), "local.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	if err := st.InitSchema(); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}
	return st
}

func taskFields(t *testing.T, content string) []byte {
	t.Helper()
	fields, err := model.MarshalFields(model.Task{Content: content, ProjectID: InboxProjectID})
	if err != nil {
		t.Fatalf("failed to marshal fields: %v", err)
	}
	return fields
}

func TestCreateAndGet(t *testing.T) {
	st := openTestStore(t)
	repo := st.Repo(model.Tasks)
	ctx := context.Background()

	created, err := repo.Create(ctx, model.Record{Fields: taskFields(t, "buy milk")})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == "" {
		t.Error("Create should assign an id")
	}
	if created.Version != 1 {
		t.Errorf("new record version = %d, want 1", created.Version)
	}

	got, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.EqualState(&created) {
		t.Errorf("round-tripped record differs: got %+v, want %+v", got, created)
	}
}

func TestCreatePreservesSuppliedEnvelope(t *testing.T) {
	st := openTestStore(t)
	repo := st.Repo(model.Labels)
	ctx := context.Background()

	ts := time.Date(2026, 8, 1, 12, 0, 0, 500, time.UTC)
	created, err := repo.Create(ctx, model.Record{
		ID:        "l1",
		UpdatedAt: ts,
		Version:   7,
		Fields:    []byte(`{"name":"urgent"}`),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Version != 7 {
		t.Errorf("version = %d, want 7", got.Version)
	}
	if !got.UpdatedAt.Equal(ts) {
		t.Errorf("updated_at = %v, want %v", got.UpdatedAt, ts)
	}
}

func TestCreateDuplicateFails(t *testing.T) {
	st := openTestStore(t)
	repo := st.Repo(model.Tasks)
	ctx := context.Background()

	rec := model.Record{ID: "t1", Fields: taskFields(t, "once")}
	if _, err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := repo.Create(ctx, rec); err == nil {
		t.Error("duplicate Create should fail")
	}
}

func TestGetMissingIsNotFound(t *testing.T) {
	st := openTestStore(t)

	_, err := st.Repo(model.Tasks).GetByID(context.Background(), "nope")
	if !errors.Is(err, sync.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestUpdateBumpsVersionByOne(t *testing.T) {
	st := openTestStore(t)
	repo := st.Repo(model.Tasks)
	ctx := context.Background()

	created, err := repo.Create(ctx, model.Record{ID: "t1", Fields: taskFields(t, "v1")})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// The incoming envelope's version is ignored, the row bumps by one.
	updated, err := repo.Update(ctx, created.ID, model.Record{
		Version: 99,
		Fields:  taskFields(t, "v2"),
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Version != 2 {
		t.Errorf("version after first update = %d, want 2", updated.Version)
	}

	updated, err = repo.Update(ctx, created.ID, model.Record{Fields: taskFields(t, "v3")})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Version != 3 {
		t.Errorf("version after second update = %d, want 3", updated.Version)
	}
}

func TestInboxIsSeededAndProtected(t *testing.T) {
	st := openTestStore(t)
	repo := st.Repo(model.Projects)
	ctx := context.Background()

	inbox, err := repo.GetByID(ctx, InboxProjectID)
	if err != nil {
		t.Fatalf("inbox not seeded: %v", err)
	}
	if !inbox.Protected {
		t.Error("inbox should be protected")
	}

	if err := repo.Delete(ctx, InboxProjectID); err == nil {
		t.Error("deleting the inbox should fail")
	}

	// Updates are still allowed, and protection is sticky.
	renamed, err := model.MarshalFields(model.Project{Name: "Eingang"})
	if err != nil {
		t.Fatalf("failed to marshal fields: %v", err)
	}
	updated, err := repo.Update(ctx, InboxProjectID, model.Record{Fields: renamed})
	if err != nil {
		t.Fatalf("updating the inbox failed: %v", err)
	}
	if !updated.Protected {
		t.Error("protection should survive updates")
	}
}

func TestInitSchemaIsIdempotent(t *testing.T) {
	st := openTestStore(t)

	if err := st.InitSchema(); err != nil {
		t.Fatalf("second InitSchema failed: %v", err)
	}

	records, err := st.Repo(model.Projects).ListActive(context.Background())
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected exactly one seeded project, got %d", len(records))
	}
}

func TestListChangedSince(t *testing.T) {
	st := openTestStore(t)
	repo := st.Repo(model.Tasks)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"t1", "t2", "t3"} {
		_, err := repo.Create(ctx, model.Record{
			ID:        id,
			UpdatedAt: base.Add(time.Duration(i) * time.Second),
			Fields:    taskFields(t, id),
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	changed, err := repo.ListChangedSince(ctx, base)
	if err != nil {
		t.Fatalf("ListChangedSince failed: %v", err)
	}
	// The boundary record itself is excluded.
	if len(changed) != 2 {
		t.Fatalf("expected 2 changed records, got %d", len(changed))
	}
	if changed[0].ID != "t2" || changed[1].ID != "t3" {
		t.Errorf("changed = [%s %s], want [t2 t3]", changed[0].ID, changed[1].ID)
	}

	all, err := repo.ListChangedSince(ctx, time.Time{})
	if err != nil {
		t.Fatalf("ListChangedSince failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("zero since should return everything, got %d records", len(all))
	}
}

func TestListChangedSinceOrdersSubsecondWrites(t *testing.T) {
	st := openTestStore(t)
	repo := st.Repo(model.Tasks)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	// Insert out of order with sub-second spacing. A trimmed-zeros
	// timestamp encoding would sort "12:00:00Z" after "12:00:00.5Z".
	for _, rec := range []model.Record{
		{ID: "late", UpdatedAt: base.Add(500 * time.Millisecond)},
		{ID: "early", UpdatedAt: base},
	} {
		rec.Fields = taskFields(t, rec.ID)
		if _, err := repo.Create(ctx, rec); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	changed, err := repo.ListChangedSince(ctx, time.Time{})
	if err != nil {
		t.Fatalf("ListChangedSince failed: %v", err)
	}
	if len(changed) != 2 || changed[0].ID != "early" || changed[1].ID != "late" {
		t.Errorf("unexpected order: %+v", changed)
	}
}

func TestDeleteWritesTombstone(t *testing.T) {
	st := openTestStore(t)
	repo := st.Repo(model.Tasks)
	ctx := context.Background()

	created, err := repo.Create(ctx, model.Record{ID: "t1", Fields: taskFields(t, "doomed")})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := repo.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	// Gone from listings, still present as a tombstone for sync.
	active, err := repo.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("tombstoned record still listed: %+v", active)
	}

	got, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.Deleted() {
		t.Error("record should be a tombstone")
	}
	if got.Version != 2 {
		t.Errorf("tombstone version = %d, want 2", got.Version)
	}
}

func TestCollectionsAreIsolated(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if _, err := st.Repo(model.Tasks).Create(ctx, model.Record{ID: "x", Fields: taskFields(t, "a task")}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	// Same id in another collection is a distinct record.
	if _, err := st.Repo(model.Labels).Create(ctx, model.Record{ID: "x", Fields: []byte(`{"name":"a label"}`)}); err != nil {
		t.Fatalf("Create in second collection failed: %v", err)
	}

	if _, err := st.Repo(model.Sections).GetByID(ctx, "x"); !errors.Is(err, sync.ErrNotFound) {
		t.Errorf("unrelated collection should not see the record, got %v", err)
	}
}

func TestEndpointCoversEveryCollection(t *testing.T) {
	st := openTestStore(t)

	ep := st.Endpoint()
	for _, c := range model.Collections() {
		repo, ok := ep[c]
		if !ok {
			t.Errorf("endpoint missing collection %s", c)
			continue
		}
		if repo.Collection() != c {
			t.Errorf("repo for %s reports collection %s", c, repo.Collection())
		}
	}
}

func TestTimeRoundTripKeepsNanoseconds(t *testing.T) {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 123456789, time.UTC)
	parsed, err := parseTime(formatTime(ts))
	if err != nil {
		t.Fatalf("parseTime failed: %v", err)
	}
	if !parsed.Equal(ts) {
		t.Errorf("round-trip changed the timestamp: %v != %v", parsed, ts)
	}
}
