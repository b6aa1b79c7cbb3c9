// Package provider talks to the third-party embed platform: fetching
// its bootstrap script (once per process) and rendering permalinks into
// embed markup via its oEmbed endpoint.
package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// ScriptClient fetches and holds the provider's embed bootstrap script.
// It implements the loader's ScriptFetcher; the server also serves the
// held bytes to browsers so each page loads the script from us.
type ScriptClient struct {
	url    string
	client *http.Client

	mu     sync.RWMutex
	script []byte
}

// NewScriptClient creates a client for the given script URL.
func NewScriptClient(url string) *ScriptClient {
	return &ScriptClient{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Cached reports whether a previous fetch already succeeded.
func (c *ScriptClient) Cached() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.script != nil
}

// Fetch downloads the provider script. On success the bytes are held
// for the process lifetime; the script is never re-fetched.
func (c *ScriptClient) Fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("building script request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching provider script: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching provider script: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading provider script: %w", err)
	}

	c.mu.Lock()
	c.script = body
	c.mu.Unlock()
	return nil
}

// Script returns the fetched script bytes, or nil before a successful
// fetch.
func (c *ScriptClient) Script() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.script
}
