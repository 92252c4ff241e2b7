// Package fetch retrieves JSON documents over HTTP.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zjrosen/iconlens/internal/log"
)

// DefaultTimeout bounds one request when no timeout is configured.
const DefaultTimeout = 15 * time.Second

// maxBodySize caps a response body; the largest bundled sets are ~10MB.
const maxBodySize = 64 << 20

// Fetcher fetches the raw bytes at url. One call is one attempt.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// HTTP is a Fetcher backed by net/http.
type HTTP struct {
	client *http.Client
}

var _ Fetcher = (*HTTP)(nil)

// NewHTTP returns an HTTP fetcher with the given timeout (DefaultTimeout if
// zero).
func NewHTTP(timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTP{client: &http.Client{Timeout: timeout}}
}

// Fetch performs a single GET.
func (h *HTTP) Fetch(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	log.Debug(log.CatFetch, "Fetched", "url", url, "bytes", len(body), "duration", time.Since(start))
	return body, nil
}

// CollectionURL is the CDN location of a collection's JSON.
func CollectionURL(cdnEntry, id string) string {
	for len(cdnEntry) > 0 && cdnEntry[len(cdnEntry)-1] == '/' {
		cdnEntry = cdnEntry[:len(cdnEntry)-1]
	}
	return cdnEntry + "/" + id + ".json"
}
