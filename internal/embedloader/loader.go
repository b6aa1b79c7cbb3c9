package embedloader

import (
	"context"
	"fmt"
	"html"
	"log"
	"sync"
	"time"
)

// Sink receives DOM-facing output for one reader's page. The server's
// websocket session implements it; tests use an in-memory fake.
type Sink interface {
	// AttachFragment hides the node's placeholder and attaches (or
	// upgrades) the embed fragment.
	AttachFragment(nodeID, fragment string)
	// ShowError replaces the placeholder overlay with a terminal error
	// affordance.
	ShowError(nodeID, message string)
	// StateChanged reports a descriptor state transition.
	StateChanged(nodeID string, state State)
}

// Renderer produces the embed fragment for a permalink once the
// provider script is available. Render failures count against the
// descriptor's retry budget like any other attempt failure. A nil
// Renderer falls back to the structural BuildFragment markup.
type Renderer interface {
	Render(ctx context.Context, permalink string) (string, error)
}

// Hook is the provider's post-processing entry point, invoked
// best-effort after a fragment is attached. It may return upgraded
// markup for the fragment; errors are logged and swallowed.
type Hook interface {
	Process(ctx context.Context, permalink, fragment string) (string, error)
}

// FailureLog records terminal failures for the debug surface. A nil
// FailureLog disables recording.
type FailureLog interface {
	RecordFailure(permalink, nodeID string, attempts int, lastError string)
	ClearFailure(permalink string)
}

// Options bounds the loader's retry behavior.
type Options struct {
	// MaxRetries is the number of retries after the first failed
	// attempt; a descriptor is attempted at most MaxRetries+1 times.
	MaxRetries int
	// RetryDelay is the backoff base: attempt n's retry waits
	// RetryDelay*n (linear backoff).
	RetryDelay time.Duration
	// HookDelay is the pause between attaching a fragment and invoking
	// the post-processing hook, letting the client DOM settle.
	HookDelay time.Duration
}

// DefaultOptions mirrors the browser implementation's constants.
func DefaultOptions() Options {
	return Options{
		MaxRetries: 3,
		RetryDelay: time.Second,
		HookDelay:  100 * time.Millisecond,
	}
}

// errorAffordance is the static message shown on terminal failure.
const errorAffordance = "Unable to load embedded post."

// Loader transitions descriptors from Pending/Observed to Loaded with
// bounded retries. All trigger paths funnel through Activate or
// ActivateManual; the descriptor's own state claim keeps attempts
// strictly sequential per descriptor while different descriptors
// interleave freely.
type Loader struct {
	gate     *Gate
	sink     Sink
	renderer Renderer
	hook     Hook
	sched    Scheduler
	failures FailureLog
	opts     Options

	mu        sync.Mutex
	timers    map[int]func()
	nextTimer int
	stopped   bool
}

// NewLoader assembles a loader. renderer, hook, and failures may be nil.
func NewLoader(gate *Gate, sink Sink, renderer Renderer, hook Hook, sched Scheduler, failures FailureLog, opts Options) *Loader {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Loader{
		gate:     gate,
		sink:     sink,
		renderer: renderer,
		hook:     hook,
		sched:    sched,
		failures: failures,
		opts:     opts,
		timers:   make(map[int]func()),
	}
}

// schedule runs f after d through the scheduler, keeping the cancel
// function so Stop can abandon it. A stopped loader schedules nothing.
func (l *Loader) schedule(d time.Duration, f func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	id := l.nextTimer
	l.nextTimer++
	l.mu.Unlock()

	cancel := l.sched.AfterFunc(d, func() {
		l.mu.Lock()
		delete(l.timers, id)
		l.mu.Unlock()
		f()
	})

	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		cancel()
		return
	}
	l.timers[id] = cancel
	l.mu.Unlock()
}

// Stop cancels every pending retry and hook timer and refuses new ones.
// Called when the owning session ends, so descriptors awaiting a retry
// are not driven to terminal failure against a dead connection.
func (l *Loader) Stop() {
	l.mu.Lock()
	l.stopped = true
	timers := l.timers
	l.timers = nil
	l.mu.Unlock()

	for _, cancel := range timers {
		cancel()
	}
}

// BuildFragment constructs the structural embed fragment for a
// permalink. The markup is decorative except for the permalink itself,
// which the post-processing hook needs to render real content.
func BuildFragment(permalink string) string {
	esc := html.EscapeString(permalink)
	return fmt.Sprintf(
		`<blockquote class="story-embed" data-permalink="%s"><a href="%s" rel="noopener noreferrer">%s</a></blockquote>`,
		esc, esc, esc)
}

// Activate drives one descriptor through a load attempt, scheduling
// retries as needed. Already-loading, loaded, and terminally-failed
// descriptors are left alone, so intersection, eager, and fallback
// triggers can all fire for the same node safely.
func (l *Loader) Activate(ctx context.Context, d *Descriptor) {
	if !d.beginAttempt(false) {
		return
	}
	l.attempt(ctx, d)
}

// ActivateManual is the user-triggered path. It bypasses visibility
// detection and re-arms a terminally-failed descriptor with a fresh
// retry budget, but still refuses an already-loaded one.
func (l *Loader) ActivateManual(ctx context.Context, d *Descriptor) {
	if !d.beginAttempt(true) {
		return
	}
	l.attempt(ctx, d)
}

// LoadAll activates every descriptor not yet loaded. This is the
// fallback when the client lacks intersection capability, and doubles
// as the debug verb.
func (l *Loader) LoadAll(ctx context.Context, reg *Registry) {
	for _, d := range reg.All() {
		l.Activate(ctx, d)
	}
}

// Reload re-arms terminally-failed descriptors and then activates
// everything not yet loaded.
func (l *Loader) Reload(ctx context.Context, reg *Registry) {
	for _, d := range reg.All() {
		if d.State() == StateFailed {
			l.ActivateManual(ctx, d)
		} else {
			l.Activate(ctx, d)
		}
	}
}

func (l *Loader) attempt(ctx context.Context, d *Descriptor) {
	// Configuration errors: log only, never retry, never surface.
	if d.Permalink == "" || !d.HasPlaceholder {
		log.Printf("embed %s: %v, skipping", d.NodeID, ErrMalformedPlaceholder)
		d.abandon()
		return
	}

	l.sink.StateChanged(d.NodeID, StateLoading)

	if err := l.gate.EnsureLoaded(ctx); err != nil {
		// Script-load failure counts as a generic attempt failure.
		l.fail(ctx, d, err)
		return
	}

	fragment := BuildFragment(d.Permalink)
	if l.renderer != nil {
		rendered, err := l.renderer.Render(ctx, d.Permalink)
		if err != nil {
			l.fail(ctx, d, err)
			return
		}
		if rendered != "" {
			fragment = rendered
		}
	}

	l.sink.AttachFragment(d.NodeID, fragment)
	d.markLoaded()
	l.sink.StateChanged(d.NodeID, StateLoaded)

	if l.failures != nil {
		l.failures.ClearFailure(d.Permalink)
	}

	l.scheduleHook(ctx, d, fragment)
}

func (l *Loader) fail(ctx context.Context, d *Descriptor, cause error) {
	attempts, terminal := d.failedAttempt(l.opts.MaxRetries)
	if !terminal {
		delay := l.opts.RetryDelay * time.Duration(attempts)
		log.Printf("embed %s: attempt %d failed (%v), retrying in %s", d.NodeID, attempts, cause, delay)
		l.schedule(delay, func() {
			// The session may have died while the retry waited; abandon
			// instead of burning the budget on a dead context.
			if ctx.Err() != nil {
				d.abandon()
				return
			}
			if !d.beginAttempt(false) {
				return
			}
			l.attempt(ctx, d)
		})
		return
	}

	log.Printf("embed %s: attempt %d failed (%v), giving up", d.NodeID, attempts, cause)
	l.sink.ShowError(d.NodeID, errorAffordance)
	l.sink.StateChanged(d.NodeID, StateFailed)
	if l.failures != nil {
		l.failures.RecordFailure(d.Permalink, d.NodeID, attempts, cause.Error())
	}
}

// scheduleHook invokes the post-processing hook after a settle delay.
// Hook outcomes never affect the Loaded state already granted: errors
// and panics are logged and swallowed.
func (l *Loader) scheduleHook(ctx context.Context, d *Descriptor, fragment string) {
	if l.hook == nil {
		return
	}
	l.schedule(l.opts.HookDelay, func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("embed %s: post-process hook panicked: %v", d.NodeID, r)
			}
		}()
		upgraded, err := l.hook.Process(ctx, d.Permalink, fragment)
		if err != nil {
			log.Printf("embed %s: post-process hook failed: %v", d.NodeID, err)
			return
		}
		if upgraded != "" && upgraded != fragment {
			l.sink.AttachFragment(d.NodeID, upgraded)
		}
	})
}
