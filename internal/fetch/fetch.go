// Package fetch downloads source pages over HTTP.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 30 * time.Second

// maxBodyBytes caps how much of a response body is read. Pages past this
// size are truncated instead of buffered whole.
const maxBodyBytes = 10 << 20

// userAgent identifies the crawler to origin servers. Some travel sites
// reject requests with no User-Agent at all.
const userAgent = "Mozilla/5.0 (compatible; annai/1.0; +https://github.com/hyperjump/annai)"

// Client fetches page content for ingestion.
type Client struct {
	http *http.Client
}

// NewClient returns a Client with the given request timeout. A non-positive
// timeout uses the default.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		http: &http.Client{Timeout: timeout},
	}
}

// Fetch retrieves the URL and returns the response body. Non-2xx statuses
// are errors; redirects are followed by the underlying client.
func (c *Client) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetching %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("reading body of %s: %w", url, err)
	}
	return string(body), nil
}
