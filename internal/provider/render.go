package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/longformhq/longform/internal/cache"
)

// RenderClient turns a permalink into provider embed markup through an
// oEmbed-style endpoint, caching results so repeat sessions skip the
// network round trip. It implements the loader's Renderer.
type RenderClient struct {
	endpoint string
	client   *http.Client
	store    *cache.Store
}

// NewRenderClient creates a render client. store may be nil to disable
// caching.
func NewRenderClient(endpoint string, store *cache.Store) *RenderClient {
	return &RenderClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
		store:    store,
	}
}

// oembedResponse is the subset of the oEmbed payload we consume.
type oembedResponse struct {
	HTML string `json:"html"`
}

// Render returns embed markup for a permalink, from cache when
// possible. Errors count against the calling descriptor's retry
// budget.
func (c *RenderClient) Render(ctx context.Context, permalink string) (string, error) {
	if c.store != nil {
		html, err := c.store.GetMarkup(permalink)
		if err == nil {
			return html, nil
		}
		if !errors.Is(err, cache.ErrNotFound) {
			// Cache trouble should not block rendering.
			log.Printf("embed cache read for %s: %v", permalink, err)
		}
	}

	q := url.Values{}
	q.Set("url", permalink)
	q.Set("omit_script", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("building render request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("rendering %s: %w", permalink, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("rendering %s: unexpected status %s", permalink, resp.Status)
	}

	var payload oembedResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decoding render response for %s: %w", permalink, err)
	}
	if payload.HTML == "" {
		return "", fmt.Errorf("rendering %s: empty markup in response", permalink)
	}

	if c.store != nil {
		if err := c.store.PutMarkup(permalink, payload.HTML); err != nil {
			log.Printf("embed cache write for %s: %v", permalink, err)
		}
	}
	return payload.HTML, nil
}
