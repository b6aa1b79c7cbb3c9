package embedloader

import (
	"context"
	"fmt"
	"sync"
)

// ScriptFetcher retrieves the third-party provider script. Cached
// reports whether a previous fetch already succeeded, which guards
// against a duplicate fetch when the gate is reset between attempts.
type ScriptFetcher interface {
	Cached() bool
	Fetch(ctx context.Context) error
}

// GateStatus is the shared script-load state.
type GateStatus int

const (
	GateNotRequested GateStatus = iota
	GateLoading
	GateLoaded
)

func (s GateStatus) String() string {
	switch s {
	case GateNotRequested:
		return "not-requested"
	case GateLoading:
		return "loading"
	case GateLoaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// Gate ensures the provider script is fetched at most once and lets any
// number of concurrent requesters await its readiness. A failed fetch
// resets the gate to NotRequested rather than a terminal state, so each
// descriptor's own bounded retry loop drives any re-fetch.
//
// The mutex guards status and waiters together; waiters are drained
// exactly once per resolution and a waiter arriving after resolution
// never joins a stale list.
type Gate struct {
	fetcher ScriptFetcher

	mu      sync.Mutex
	status  GateStatus
	waiters []chan error
}

// NewGate creates a gate around the given fetcher.
func NewGate(fetcher ScriptFetcher) *Gate {
	return &Gate{fetcher: fetcher}
}

// Status returns the current gate status.
func (g *Gate) Status() GateStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// EnsureLoaded resolves once the provider script is available. The
// first caller in NotRequested performs the fetch; callers arriving
// while a fetch is in flight share its outcome. After a success every
// future call resolves immediately without another fetch.
func (g *Gate) EnsureLoaded(ctx context.Context) error {
	g.mu.Lock()
	switch g.status {
	case GateLoaded:
		g.mu.Unlock()
		return nil
	case GateLoading:
		ch := make(chan error, 1)
		g.waiters = append(g.waiters, ch)
		g.mu.Unlock()
		select {
		case err := <-ch:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	g.status = GateLoading
	g.mu.Unlock()

	var err error
	if !g.fetcher.Cached() {
		err = g.fetcher.Fetch(ctx)
	}

	g.mu.Lock()
	waiters := g.waiters
	g.waiters = nil
	if err != nil {
		// Reset rather than latch a failure: a later attempt may fetch
		// from scratch.
		g.status = GateNotRequested
		err = fmt.Errorf("%w: %w", ErrScriptLoad, err)
	} else {
		g.status = GateLoaded
	}
	g.mu.Unlock()

	for _, ch := range waiters {
		ch <- err
	}
	return err
}
