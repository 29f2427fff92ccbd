// Package hosting is a thin HTTP client for the platform that hosts a run:
// it reports run status, flips run-level settings, and tears the run down.
package hosting

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RunStatus is the hosting platform's view of a run.
type RunStatus struct {
	Status    string `json:"status"`
	Completed bool   `json:"completed"`
}

// Client queries and controls hosted runs. Implementations must bound every
// call; the HTTP client does so with a request timeout.
type Client interface {
	RunStatus(ctx context.Context, runID string) (RunStatus, error)
	Teardown(ctx context.Context, runID string) error
	DisableAutoRecruit(ctx context.Context, runID string) error
}

const defaultRequestTimeout = 30 * time.Second

// HTTPClient implements Client against the hosting platform's JSON API.
type HTTPClient struct {
	base   string
	client *http.Client
}

var _ Client = (*HTTPClient)(nil)

// New builds a client for the hosting API at base.
func New(base string) (*HTTPClient, error) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return nil, fmt.Errorf("hosting: base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("hosting: base url: %w", err)
	}
	return &HTTPClient{base: base, client: &http.Client{Timeout: defaultRequestTimeout}}, nil
}

func (c *HTTPClient) RunStatus(ctx context.Context, runID string) (RunStatus, error) {
	var status RunStatus
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.runURL(runID, "status"), nil)
	if err != nil {
		return status, fmt.Errorf("hosting: build status request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return status, fmt.Errorf("hosting: run status %s: %w", runID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return status, fmt.Errorf("hosting: run status %s: status %d", runID, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return status, fmt.Errorf("hosting: decode run status %s: %w", runID, err)
	}
	return status, nil
}

func (c *HTTPClient) Teardown(ctx context.Context, runID string) error {
	return c.post(ctx, runID, "teardown")
}

// DisableAutoRecruit turns off the run's automatic replacement recruiting.
// Used during emergency shutdown so the platform stops backfilling while
// the operator investigates.
func (c *HTTPClient) DisableAutoRecruit(ctx context.Context, runID string) error {
	return c.post(ctx, runID, "autorecruit/disable")
}

func (c *HTTPClient) post(ctx context.Context, runID, action string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.runURL(runID, action), nil)
	if err != nil {
		return fmt.Errorf("hosting: build %s request: %w", action, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("hosting: %s %s: %w", action, runID, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("hosting: %s %s: status %d", action, runID, resp.StatusCode)
	}
	return nil
}

func (c *HTTPClient) runURL(runID, suffix string) string {
	return c.base + "/runs/" + url.PathEscape(runID) + "/" + suffix
}
