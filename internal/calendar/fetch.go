package calendar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// feed downloads a schedule document over HTTP. It remembers the validators
// of the last successful response and sends them on the next request; a
// 304 Not Modified answer returns the body cached in memory.
type feed struct {
	url      string
	username string
	password string
	client   *http.Client

	mu           sync.Mutex
	etag         string
	lastModified string
	body         []byte
}

func newFeed(url, username, password string) *feed {
	return &feed{
		url:      url,
		username: username,
		password: password,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// get returns the current document and reports whether it came from the cache.
func (f *feed) get(ctx context.Context) ([]byte, bool, error) {
	if f.url == "" {
		return nil, false, errors.New("source URL is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}

	// Add basic auth if credentials provided
	if f.username != "" && f.password != "" {
		req.SetBasicAuth(f.username, f.password)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.etag != "" {
		req.Header.Set("If-None-Match", f.etag)
	}
	if f.lastModified != "" {
		req.Header.Set("If-Modified-Since", f.lastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, false, fmt.Errorf("read body: %w", err)
		}
		f.etag = resp.Header.Get("ETag")
		f.lastModified = resp.Header.Get("Last-Modified")
		f.body = body
		return body, false, nil

	case http.StatusNotModified:
		if f.body == nil {
			return nil, false, errors.New("received 304 Not Modified but no cached body available")
		}
		slog.Debug("schedule not modified, using cached body", "url", f.url)
		return f.body, true, nil

	default:
		return nil, false, fmt.Errorf("status %d", resp.StatusCode)
	}
}
