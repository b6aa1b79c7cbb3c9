package embedloader

import (
	"context"
	"sync"
	"time"
)

// Rect is a placeholder's position reported by the client, in
// viewport-relative logical pixels.
type Rect struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Bottom float64 `json:"bottom"`
	Right  float64 `json:"right"`
}

// Viewport is the client's visible window size in logical pixels.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether the rect lies fully within the viewport.
func (v Viewport) Contains(r Rect) bool {
	return r.Top >= 0 && r.Left >= 0 && r.Bottom <= v.Height && r.Right <= v.Width
}

// Capabilities is the client's feature handshake.
type Capabilities struct {
	// IntersectionObserver reports whether the client can deliver
	// intersection events. Without it the session degrades to loading
	// every embed immediately.
	IntersectionObserver bool `json:"intersection_observer"`
}

// Triggers decides when each descriptor's activation runs. Three paths
// feed the same loader and the descriptor's own load guard ensures at
// most one of them wins per node:
//
//   - intersection: one-shot enter-viewport events from the client
//   - eager: a sweep after the client's load event plus a settle delay,
//     catching embeds already inside the first-paint viewport
//   - manual: a user control on the placeholder
type Triggers struct {
	loader *Loader
	reg    *Registry
	sched  Scheduler
	settle time.Duration

	mu       sync.Mutex
	observed map[string]bool
	swept    bool
}

// NewTriggers wires trigger dispatch for one session's registry.
func NewTriggers(loader *Loader, reg *Registry, sched Scheduler, settle time.Duration) *Triggers {
	return &Triggers{
		loader:   loader,
		reg:      reg,
		sched:    sched,
		settle:   settle,
		observed: make(map[string]bool),
	}
}

// Start begins observation according to the client's capabilities. A
// client without intersection support gets everything loaded up front.
func (t *Triggers) Start(ctx context.Context, caps Capabilities) {
	if !caps.IntersectionObserver {
		t.loader.LoadAll(ctx, t.reg)
		return
	}
	t.mu.Lock()
	for _, d := range t.reg.All() {
		t.observed[d.NodeID] = true
		d.markObserved()
	}
	t.mu.Unlock()
}

// HandleIntersect processes one enter-viewport notification. The first
// event for a node activates it and deregisters the node (one-shot);
// later events are dropped.
func (t *Triggers) HandleIntersect(ctx context.Context, nodeID string) {
	t.mu.Lock()
	ok := t.observed[nodeID]
	delete(t.observed, nodeID)
	t.mu.Unlock()
	if !ok {
		return
	}
	if d, found := t.reg.Get(nodeID); found {
		t.loader.Activate(ctx, d)
	}
}

// HandleLoad runs the eager-visible path: after the client's full load
// event plus the settle delay, every descriptor whose reported rect is
// fully within the viewport activates immediately, without waiting for
// an intersection notification. The sweep runs once per session.
func (t *Triggers) HandleLoad(ctx context.Context, rects map[string]Rect, vp Viewport) {
	t.mu.Lock()
	if t.swept {
		t.mu.Unlock()
		return
	}
	t.swept = true
	t.mu.Unlock()

	t.sched.AfterFunc(t.settle, func() {
		for _, d := range t.reg.All() {
			if d.State() == StateLoaded {
				continue
			}
			r, ok := rects[d.NodeID]
			if !ok || !vp.Contains(r) {
				continue
			}
			t.loader.Activate(ctx, d)
		}
	})
}

// HandleManual processes a user-activated control on a placeholder.
func (t *Triggers) HandleManual(ctx context.Context, nodeID string) {
	d, ok := t.reg.Get(nodeID)
	if !ok {
		return
	}
	t.loader.ActivateManual(ctx, d)
}
