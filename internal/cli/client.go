// Package cli provides the HTTP client and output formatting used by the
// hanashi subcommands.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hyperjump/hanashi/internal/models"
	"github.com/hyperjump/hanashi/internal/stream"
)

// DefaultServerURL is where the CLI looks for a running server.
const DefaultServerURL = "http://localhost:8000"

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to a running hanashi server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for serverURL. A nil httpClient uses http.DefaultClient.
func NewClient(serverURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(serverURL, "/"), http: httpClient}
}

// Ask sends a query and calls onChunk for every streamed chunk. It returns
// the session ID the server answered in.
func (c *Client) Ask(ctx context.Context, req *models.GenerateRequest, onChunk func(string)) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/generate", req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	done := false
	err = stream.ReadEvents(resp.Body, func(ev stream.Event) error {
		if ev.Name == stream.DoneEvent {
			done = true
			return nil
		}
		onChunk(ev.Data)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("read stream: %w", err)
	}
	if !done {
		return "", fmt.Errorf("stream ended before completion")
	}
	return resp.Header.Get("X-Session-ID"), nil
}

// Ingest uploads a document to the knowledge base and returns its ID.
func (c *Client) Ingest(ctx context.Context, input *models.DocumentInput) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/v1/knowledge", input, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// Forget deletes a knowledge document.
func (c *Client) Forget(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/api/v1/knowledge/"+url.PathEscape(id), nil, nil)
}

// Search runs a knowledge search.
func (c *Client) Search(ctx context.Context, q *models.KnowledgeQuery) ([]*models.KnowledgeHit, error) {
	var out struct {
		Hits []*models.KnowledgeHit `json:"hits"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/v1/knowledge/search", q, &out); err != nil {
		return nil, err
	}
	return out.Hits, nil
}

// IngestDirectoryResult reports a server-side directory ingest.
type IngestDirectoryResult struct {
	Path    string `json:"path"`
	Indexed int    `json:"indexed"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
}

// IngestDirectory asks the server to ingest every supported file under dir.
// dir must be readable by the server process.
func (c *Client) IngestDirectory(ctx context.Context, dir string, recursive bool) (*IngestDirectoryResult, error) {
	body := map[string]interface{}{"path": dir, "recursive": recursive}
	var out IngestDirectoryResult
	if err := c.call(ctx, http.MethodPost, "/api/v1/knowledge/directory", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SessionHistory is the transcript of one session.
type SessionHistory struct {
	SessionID string            `json:"session_id"`
	Messages  []*models.Message `json:"messages"`
}

// History returns the messages of a session. An empty sessionID asks for the
// server's default session.
func (c *Client) History(ctx context.Context, sessionID string) (*SessionHistory, error) {
	var out SessionHistory
	if err := c.call(ctx, http.MethodGet, sessionPath(sessionID, "/messages"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Sessions lists sessions, most recently active first.
func (c *Client) Sessions(ctx context.Context) ([]*models.Session, error) {
	var out struct {
		Sessions []*models.Session `json:"sessions"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/sessions", nil, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

// Reset deletes a session and returns the ID the server cleared. An empty
// sessionID clears the server's default session.
func (c *Client) Reset(ctx context.Context, sessionID string) (string, error) {
	var out struct {
		SessionID string `json:"session_id"`
	}
	if err := c.call(ctx, http.MethodDelete, sessionPath(sessionID, ""), nil, &out); err != nil {
		return "", err
	}
	return out.SessionID, nil
}

// sessionPath builds /api/v1/sessions/{id}{suffix}, or the id-less
// /api/v1/messages route when id is empty.
func sessionPath(id, suffix string) string {
	if id == "" {
		return "/api/v1/messages"
	}
	return "/api/v1/sessions/" + url.PathEscape(id) + suffix
}

// Status fetches server status.
func (c *Client) Status(ctx context.Context) (*models.Status, error) {
	var st models.Status
	if err := c.call(ctx, http.MethodGet, "/api/v1/status", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) call(ctx context.Context, method, path string, body, out interface{}) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// do sends the request and turns non-2xx responses into *APIError.
func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(b))}
		var errBody struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(b, &errBody) == nil && errBody.Error != "" {
			apiErr.Message = errBody.Error
		}
		return nil, apiErr
	}
	return resp, nil
}
