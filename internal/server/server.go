package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/longformhq/longform/internal/cache"
	"github.com/longformhq/longform/internal/config"
	"github.com/longformhq/longform/internal/embedloader"
	"github.com/longformhq/longform/internal/provider"
	"github.com/longformhq/longform/internal/site"
	"github.com/longformhq/longform/internal/story"
)

// Config holds server configuration.
type Config struct {
	Port     int
	Title    string
	AllowAll bool // allow all CORS origins (dev mode)
	Embeds   config.EmbedConfig
}

// Server serves the story page and coordinates lazy embed loading for
// connected readers.
type Server struct {
	cfg     Config
	story   *story.Story
	page    []byte
	version string

	gate     *embedloader.Gate
	script   *provider.ScriptClient
	renderer embedloader.Renderer
	store    *cache.Store
	sched    embedloader.Scheduler

	router     chi.Router
	httpServer *http.Server
	upgrader   websocket.Upgrader

	mu       sync.Mutex
	sessions map[*session]struct{}
}

// New creates a server for the given story. store may be nil to
// disable markup caching and failure records.
func New(cfg Config, st *story.Story, store *cache.Store, version string) (*Server, error) {
	script := provider.NewScriptClient(cfg.Embeds.ScriptURL)

	s := &Server{
		cfg:      cfg,
		story:    st,
		version:  version,
		gate:     embedloader.NewGate(script),
		script:   script,
		store:    store,
		sched:    embedloader.NewScheduler(),
		sessions: make(map[*session]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	if cfg.Embeds.RenderURL != "" {
		s.renderer = provider.NewRenderClient(cfg.Embeds.RenderURL, store)
	}

	page, err := site.RenderPage(st, site.PageOptions{
		Title:         cfg.Title,
		Live:          true,
		EmbedsEnabled: !cfg.Embeds.Disabled,
		Version:       version,
	})
	if err != nil {
		return nil, fmt.Errorf("assembling story page: %w", err)
	}
	s.page = page

	s.router = s.buildRouter()
	return s, nil
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/", s.handlePage)
	r.Get("/story/{chapter}", s.handleChapterLink)
	r.Get("/assets/style.css", s.handleAsset("text/css; charset=utf-8", site.StyleCSS))
	r.Get("/assets/story.js", s.handleAsset("application/javascript; charset=utf-8", site.StoryJS))
	r.Get("/embed/platform.js", s.handlePlatformScript)
	r.Get("/ws", s.handleWS)

	// Debug surface.
	r.Get("/api/embeds", s.handleEmbedStates)
	r.Post("/api/embeds/reload", s.handleReload)

	return r
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("longform serving %q on %s", s.cfg.Title, addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server and closes all sessions.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for sess := range s.sessions {
		sess.close()
	}
	s.mu.Unlock()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(s.page)
}

// handleChapterLink deep-links a chapter: the page is one document, so
// known anchors redirect to the fragment and unknown ones 404.
func (s *Server) handleChapterLink(w http.ResponseWriter, r *http.Request) {
	anchor := chi.URLParam(r, "chapter")
	for _, ch := range s.story.Chapters {
		if ch.Anchor == anchor {
			http.Redirect(w, r, "/#"+anchor, http.StatusFound)
			return
		}
	}
	http.NotFound(w, r)
}

func (s *Server) handleAsset(contentType, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Write([]byte(body))
	}
}

// handlePlatformScript serves the provider script once the gate has
// fetched it. Clients retry through their own embed retry loop, so a
// 404 here is not terminal.
func (s *Server) handlePlatformScript(w http.ResponseWriter, r *http.Request) {
	body := s.script.Script()
	if body == nil {
		http.Error(w, "provider script not loaded yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Write(body)
}

// handleWS upgrades the connection and runs one reader session.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	sess := newSession(conn)
	sess.reg = s.buildRegistry()
	sess.loader = embedloader.NewLoader(
		s.gate, sess, s.renderer, sess, s.sched, s.failureLog(), s.loaderOptions())
	sess.triggers = embedloader.NewTriggers(
		sess.loader, sess.reg, s.sched, s.cfg.Embeds.SettleDelay())

	s.mu.Lock()
	s.sessions[sess] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.sessions, sess)
		s.mu.Unlock()
		sess.close()
	}()

	// Observer configuration goes out first.
	sess.send(serverMessage{Type: msgConfig, Config: &clientConfig{
		LookaheadMarginPx: s.cfg.Embeds.LookaheadMarginPx,
		VisibleThreshold:  s.cfg.Embeds.VisibleThreshold,
		SettleDelayMS:     s.cfg.Embeds.SettleDelayMS,
		ScriptPath:        "/embed/platform.js",
		Version:           s.version,
	}})

	go sess.writeLoop()
	sess.readLoop(r.Context())
}

// buildRegistry mirrors the story's placeholders into descriptors for
// one session. With embeds disabled the registry stays empty and every
// trigger event is a no-op.
func (s *Server) buildRegistry() *embedloader.Registry {
	reg := embedloader.NewRegistry()
	if s.cfg.Embeds.Disabled {
		return reg
	}
	for _, p := range s.story.Placeholders {
		d := embedloader.NewDescriptor(p.NodeID, p.Permalink, p.HasInner)
		if err := reg.Add(d); err != nil {
			log.Printf("placeholder %s: %v, ignoring duplicate", p.NodeID, err)
		}
	}
	return reg
}

func (s *Server) loaderOptions() embedloader.Options {
	return embedloader.Options{
		MaxRetries: s.cfg.Embeds.MaxRetries,
		RetryDelay: s.cfg.Embeds.RetryDelay(),
		HookDelay:  s.cfg.Embeds.HookDelay(),
	}
}

// failureLog adapts the cache store to the loader's FailureLog. A nil
// store disables recording.
func (s *Server) failureLog() embedloader.FailureLog {
	if s.store == nil {
		return nil
	}
	return &storeFailureLog{store: s.store}
}

type storeFailureLog struct {
	store *cache.Store
}

func (l *storeFailureLog) RecordFailure(permalink, nodeID string, attempts int, lastError string) {
	err := l.store.RecordFailure(cache.Failure{
		Permalink: permalink,
		NodeID:    nodeID,
		Attempts:  attempts,
		LastError: lastError,
	})
	if err != nil {
		log.Printf("recording embed failure: %v", err)
	}
}

func (l *storeFailureLog) ClearFailure(permalink string) {
	if err := l.store.ClearFailure(permalink); err != nil {
		log.Printf("clearing embed failure: %v", err)
	}
}

// embedStatesResponse is the JSON shape of GET /api/embeds.
type embedStatesResponse struct {
	Version      string             `json:"version"`
	GateStatus   string             `json:"gate_status"`
	Sessions     int                `json:"sessions"`
	Placeholders []placeholderState `json:"placeholders"`
	Failures     []failureState     `json:"failures,omitempty"`
}

type placeholderState struct {
	Node      string `json:"node"`
	Permalink string `json:"permalink"`
	Malformed bool   `json:"malformed,omitempty"`
}

type failureState struct {
	Permalink string `json:"permalink"`
	Node      string `json:"node"`
	Attempts  int    `json:"attempts"`
	LastError string `json:"last_error"`
}

func (s *Server) handleEmbedStates(w http.ResponseWriter, r *http.Request) {
	resp := embedStatesResponse{
		Version:    s.version,
		GateStatus: s.gate.Status().String(),
	}
	s.mu.Lock()
	resp.Sessions = len(s.sessions)
	s.mu.Unlock()

	for _, p := range s.story.Placeholders {
		resp.Placeholders = append(resp.Placeholders, placeholderState{
			Node:      p.NodeID,
			Permalink: p.Permalink,
			Malformed: !p.HasInner,
		})
	}

	if s.store != nil {
		failures, err := s.store.Failures()
		if err != nil {
			log.Printf("listing embed failures: %v", err)
		}
		for _, f := range failures {
			resp.Failures = append(resp.Failures, failureState{
				Permalink: f.Permalink,
				Node:      f.NodeID,
				Attempts:  f.Attempts,
				LastError: f.LastError,
			})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleReload re-arms terminally-failed embeds in every connected
// session. Parity with the page's manual debug affordance.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	sessions := make([]*session, 0, len(s.sessions))
	for sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	// Reloads outlive the triggering request: retries and fetches run
	// on the sessions' own lifetime.
	for _, sess := range sessions {
		sess.loader.Reload(context.Background(), sess.reg)
	}

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"reloaded_sessions":%d}`, len(sessions))
}
