package loadcheck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/rosterlens/internal/domain/model"
	"github.com/okian/rosterlens/internal/domain/types"
)

const maxBodyBytes = 64 << 20

// Client talks to the rosterlens HTTP API.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{base: baseURL, http: &http.Client{Timeout: timeout}}
}

// ViewPayload mirrors the view response.
type ViewPayload struct {
	Generation uint64                `json:"generation"`
	Label      string                `json:"label"`
	Sort       types.SortState       `json:"sort"`
	Count      int                   `json:"count"`
	Records    []model.StudentRecord `json:"records"`
}

// StatusError is an unexpected reply.
type StatusError struct {
	Path string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Path, e.Code, e.Body)
}

// Health checks /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", "", nil, http.StatusOK, nil)
}

// Upload posts a CSV roster.
func (c *Client) Upload(ctx context.Context, csv []byte) (types.UploadResult, error) {
	var res types.UploadResult
	err := c.do(ctx, http.MethodPost, "/roster?format=csv", "text/csv", bytes.NewReader(csv), http.StatusAccepted, &res)
	return res, err
}

// Progress reads the latest progress.
func (c *Client) Progress(ctx context.Context) (model.Progress, error) {
	var p model.Progress
	err := c.do(ctx, http.MethodGet, "/roster/progress", "", nil, http.StatusOK, &p)
	return p, err
}

// View reads the displayed view.
func (c *Client) View(ctx context.Context) (ViewPayload, error) {
	var v ViewPayload
	err := c.do(ctx, http.MethodGet, "/roster/view", "", nil, http.StatusOK, &v)
	return v, err
}

// ApplyView derives a new displayed view.
func (c *Client) ApplyView(ctx context.Context, q types.ViewQuery) (ViewPayload, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return ViewPayload{}, fmt.Errorf("marshal query: %w", err)
	}
	var v ViewPayload
	err = c.do(ctx, http.MethodPost, "/roster/view", "application/json", bytes.NewReader(body), http.StatusOK, &v)
	return v, err
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, want int, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode != want {
		return &StatusError{Path: path, Code: resp.StatusCode, Body: string(bytes.TrimSpace(raw))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
