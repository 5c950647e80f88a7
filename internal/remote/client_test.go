package remote

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/todopro/todopro-cli/internal/model"
	"github.com/todopro/todopro-cli/internal/sync"
)

func testLogger() *log.Logger {
	return log.New(os.Stderr, "[test] ", 0)
}

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "secret-token", 5*time.Second, testLogger())
}

func TestRequestsCarryAuthAndContentHeaders(t *testing.T) {
	var got *http.Request
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Write([]byte(`{}`))
	}))

	var rec model.Record
	if err := client.do(context.Background(), http.MethodPost, "/v1/tasks/", model.Record{ID: "t1"}, &rec); err != nil {
		t.Fatalf("do failed: %v", err)
	}

	if auth := got.Header.Get("Authorization"); auth != "Bearer secret-token" {
		t.Errorf("Authorization = %q, want Bearer token", auth)
	}
	if ct := got.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if accept := got.Header.Get("Accept"); accept != "application/json" {
		t.Errorf("Accept = %q, want application/json", accept)
	}
}

func TestLogin(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/auth/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var creds map[string]string
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			t.Errorf("failed to decode credentials: %v", err)
		}
		if creds["email"] != "a@b.test" || creds["password"] != "hunter2" {
			t.Errorf("unexpected credentials: %v", creds)
		}
		json.NewEncoder(w).Encode(map[string]string{"token": "tok-123"})
	}))

	token, err := client.Login(context.Background(), "a@b.test", "hunter2")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if token != "tok-123" {
		t.Errorf("token = %q, want tok-123", token)
	}
}

func TestLoginEmptyTokenIsAnError(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))

	if _, err := client.Login(context.Background(), "a@b.test", "pw"); err == nil {
		t.Error("expected error for empty token")
	}
}

func TestListChangedSinceQuery(t *testing.T) {
	since := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/tasks/" {
			t.Errorf("path = %q, want /v1/tasks/", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("include_deleted") != "true" {
			t.Error("include_deleted=true missing from query")
		}
		if q.Get("updated_since") != since.Format(time.RFC3339Nano) {
			t.Errorf("updated_since = %q", q.Get("updated_since"))
		}
		json.NewEncoder(w).Encode([]model.Record{
			{ID: "t1", UpdatedAt: since.Add(time.Minute), Version: 2},
		})
	}))

	records, err := client.Repo(model.Tasks).ListChangedSince(context.Background(), since)
	if err != nil {
		t.Fatalf("ListChangedSince failed: %v", err)
	}
	if len(records) != 1 || records[0].ID != "t1" || records[0].Version != 2 {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestListChangedSinceZeroOmitsFilter(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("updated_since") {
			t.Error("zero since should omit updated_since")
		}
		w.Write([]byte(`[]`))
	}))

	if _, err := client.Repo(model.Tasks).ListChangedSince(context.Background(), time.Time{}); err != nil {
		t.Fatalf("ListChangedSince failed: %v", err)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such record", http.StatusNotFound)
	}))

	_, err := client.Repo(model.Tasks).GetByID(context.Background(), "missing")
	if !errors.Is(err, sync.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestGetByIDEscapesID(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/v1/tasks/a%2Fb" {
			t.Errorf("path = %q, want escaped id", r.URL.EscapedPath())
		}
		json.NewEncoder(w).Encode(model.Record{ID: "a/b"})
	}))

	if _, err := client.Repo(model.Tasks).GetByID(context.Background(), "a/b"); err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
}

func TestServerErrorsAreTransient(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))

	_, err := client.Repo(model.Tasks).ListChangedSince(context.Background(), time.Time{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !sync.IsTransient(err) {
		t.Errorf("5xx should be transient, got %v", err)
	}
}

func TestClientErrorsAreNotTransient(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "version mismatch", http.StatusConflict)
	}))

	_, err := client.Repo(model.Tasks).Update(context.Background(), "t1", model.Record{ID: "t1"})
	if err == nil {
		t.Fatal("expected error")
	}
	if sync.IsTransient(err) {
		t.Errorf("4xx must not be transient, got %v", err)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error chain missing *APIError: %v", err)
	}
	if apiErr.Status != http.StatusConflict {
		t.Errorf("status = %d, want 409", apiErr.Status)
	}
	if apiErr.Message == "" {
		t.Error("body excerpt should be captured in Message")
	}
}

func TestNetworkFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused from here on

	client := NewClient(srv.URL, "", time.Second, testLogger())
	_, err := client.Repo(model.Tasks).ListChangedSince(context.Background(), time.Time{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !sync.IsTransient(err) {
		t.Errorf("transport failure should be transient, got %v", err)
	}
}

func TestCreateRoundTripsRecord(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/labels/" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var rec model.Record
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		json.NewEncoder(w).Encode(rec)
	}))

	sent := model.Record{ID: "l1", Version: 3, Fields: []byte(`{"name":"urgent"}`)}
	created, err := client.Repo(model.Labels).Create(context.Background(), sent)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID != sent.ID || created.Version != sent.Version {
		t.Errorf("created = %+v, want echo of %+v", created, sent)
	}
}
