// Package remote is the HTTP client for the todopro service. It exposes
// the same per-collection repository contract as the local store so the
// sync engine can treat both sides uniformly.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/todopro/todopro-cli/internal/model"
	"github.com/todopro/todopro-cli/internal/sync"
)

// Client talks to the todopro REST API (/v1/...). All requests carry the
// profile's Bearer token; responses and request bodies are JSON.
type Client struct {
	base   string
	token  string
	httpc  *http.Client
	logger *log.Logger
}

// NewClient creates an API client for the given endpoint. If logger is
// nil, a default logger writing to stderr is used.
func NewClient(endpoint, token string, timeout time.Duration, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(os.Stderr, "[api] ", log.LstdFlags)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		base:   strings.TrimRight(endpoint, "/"),
		token:  token,
		httpc:  &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Repo returns the remote repository for one collection.
func (c *Client) Repo(coll model.Collection) *Repo {
	return &Repo{client: c, collection: coll}
}

// Endpoint returns the full remote repository set for the sync engine.
func (c *Client) Endpoint() sync.Endpoint {
	ep := make(sync.Endpoint)
	for _, coll := range model.Collections() {
		ep[coll] = c.Repo(coll)
	}
	return ep
}

// Login exchanges credentials for a Bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/v1/auth/login", body, &resp); err != nil {
		return "", fmt.Errorf("login failed: %w", err)
	}
	if resp.Token == "" {
		return "", fmt.Errorf("login failed: service returned no token")
	}
	return resp.Token, nil
}

// do performs one request. Transport failures and non-2xx responses are
// returned as *APIError so callers can classify them; retry policy lives
// with the caller (the sync engine retries transient errors per record).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return &APIError{Path: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			Status:  resp.StatusCode,
			Path:    path,
			Message: strings.TrimSpace(string(msg)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}
