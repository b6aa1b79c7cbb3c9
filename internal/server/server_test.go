package server

import (
	"encoding/json"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/longformhq/longform/internal/cache"
	"github.com/longformhq/longform/internal/config"
	"github.com/longformhq/longform/internal/story"
)

func testStory() *story.Story {
	return &story.Story{
		Title: "The Crossing",
		Chapters: []story.Chapter{
			{Slug: "intro", Title: "Intro", Anchor: "intro", HTML: template.HTML("<p>It begins.</p>")},
		},
		Placeholders: []story.Placeholder{
			{NodeID: "embed-1", Permalink: "https://example.com/s/1", HasInner: true},
			{NodeID: "embed-2", Permalink: "https://example.com/s/2", HasInner: false},
		},
	}
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	store, err := cache.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	srv, err := New(cfg, testStory(), store, "test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t, Config{Port: 0, Embeds: config.DefaultConfig().Embeds})

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", body["status"])
	}
}

func TestCORSHeaders(t *testing.T) {
	srv := newTestServer(t, Config{Port: 0, AllowAll: true, Embeds: config.DefaultConfig().Embeds})

	req := httptest.NewRequest("OPTIONS", "/healthz", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected CORS Allow-Origin header")
	}
}

func TestStoryPageServed(t *testing.T) {
	srv := newTestServer(t, Config{Port: 0, Title: "The Crossing", Embeds: config.DefaultConfig().Embeds})

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected html content type, got %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "The Crossing") {
		t.Error("page missing story title")
	}
	if !strings.Contains(body, `data-live="true"`) {
		t.Error("served page should be in live mode")
	}
	if !strings.Contains(body, `id="intro"`) {
		t.Error("page missing chapter anchor")
	}
}

func TestChapterDeepLink(t *testing.T) {
	srv := newTestServer(t, Config{Port: 0, Embeds: config.DefaultConfig().Embeds})

	req := httptest.NewRequest("GET", "/story/intro", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("expected redirect for known chapter, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/#intro" {
		t.Errorf("expected redirect to /#intro, got %q", loc)
	}

	req = httptest.NewRequest("GET", "/story/no-such-chapter", nil)
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown chapter, got %d", w.Code)
	}
}

func TestAssetsServed(t *testing.T) {
	srv := newTestServer(t, Config{Port: 0, Embeds: config.DefaultConfig().Embeds})

	tests := []struct {
		path        string
		contentType string
	}{
		{"/assets/style.css", "text/css"},
		{"/assets/story.js", "application/javascript"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", tt.path, nil)
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", tt.path, w.Code)
		}
		if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, tt.contentType) {
			t.Errorf("%s: expected %s content type, got %q", tt.path, tt.contentType, ct)
		}
		if w.Body.Len() == 0 {
			t.Errorf("%s: empty body", tt.path)
		}
	}
}

func TestPlatformScriptUnavailableBeforeFetch(t *testing.T) {
	srv := newTestServer(t, Config{Port: 0, Embeds: config.DefaultConfig().Embeds})

	req := httptest.NewRequest("GET", "/embed/platform.js", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before the script is fetched, got %d", w.Code)
	}
}

func TestEmbedStatesEndpoint(t *testing.T) {
	srv := newTestServer(t, Config{Port: 0, Embeds: config.DefaultConfig().Embeds})

	req := httptest.NewRequest("GET", "/api/embeds", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp embedStatesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.GateStatus != "not-requested" {
		t.Errorf("expected gate not-requested, got %q", resp.GateStatus)
	}
	if len(resp.Placeholders) != 2 {
		t.Fatalf("expected 2 placeholders, got %d", len(resp.Placeholders))
	}
	if !resp.Placeholders[1].Malformed {
		t.Error("placeholder without inner markup should be flagged malformed")
	}
}

func TestRegistryEmptyWhenEmbedsDisabled(t *testing.T) {
	embeds := config.DefaultConfig().Embeds
	embeds.Disabled = true
	srv := newTestServer(t, Config{Port: 0, Embeds: embeds})

	if got := srv.buildRegistry().Len(); got != 0 {
		t.Errorf("expected empty registry with embeds disabled, got %d descriptors", got)
	}
}

func TestRegistrySkipsDuplicatePlaceholders(t *testing.T) {
	srv := newTestServer(t, Config{Port: 0, Embeds: config.DefaultConfig().Embeds})
	srv.story.Placeholders = append(srv.story.Placeholders, story.Placeholder{
		NodeID: "embed-1", Permalink: "https://example.com/s/duplicate", HasInner: true,
	})

	if got := srv.buildRegistry().Len(); got != 2 {
		t.Errorf("expected duplicate node to be dropped, got %d descriptors", got)
	}
}
