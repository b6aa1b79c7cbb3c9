package embedloader

import (
	"context"
	"errors"
	"sync"
	"time"
)

// fakeFetcher is a scriptable ScriptFetcher. Each Fetch call consumes
// the next outcome from errs; calls beyond the list succeed.
type fakeFetcher struct {
	mu      sync.Mutex
	errs    []error
	fetches int
	cached  bool
	release chan struct{} // when set, Fetch blocks until closed
}

func (f *fakeFetcher) Cached() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cached
}

func (f *fakeFetcher) Fetch(ctx context.Context) error {
	f.mu.Lock()
	n := f.fetches
	f.fetches++
	var err error
	if n < len(f.errs) {
		err = f.errs[n]
	}
	release := f.release
	f.mu.Unlock()

	if release != nil {
		<-release
	}
	if err == nil {
		f.mu.Lock()
		f.cached = true
		f.mu.Unlock()
	}
	return err
}

func (f *fakeFetcher) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

var (
	errFetch = errors.New("network down")
	errHook  = errors.New("widget init failed")
)

// failingFetcher always fails.
type failingFetcher struct {
	mu      sync.Mutex
	fetches int
}

func (f *failingFetcher) Cached() bool { return false }

func (f *failingFetcher) Fetch(ctx context.Context) error {
	f.mu.Lock()
	f.fetches++
	f.mu.Unlock()
	return errFetch
}

func (f *failingFetcher) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

// fakeSink records all DOM-facing output per node.
type fakeSink struct {
	mu        sync.Mutex
	fragments map[string][]string
	errors    map[string][]string
	states    map[string][]State
}

func newFakeSink() *fakeSink {
	return &fakeSink{
		fragments: make(map[string][]string),
		errors:    make(map[string][]string),
		states:    make(map[string][]State),
	}
}

func (s *fakeSink) AttachFragment(nodeID, fragment string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fragments[nodeID] = append(s.fragments[nodeID], fragment)
}

func (s *fakeSink) ShowError(nodeID, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors[nodeID] = append(s.errors[nodeID], message)
}

func (s *fakeSink) StateChanged(nodeID string, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[nodeID] = append(s.states[nodeID], state)
}

func (s *fakeSink) attachCount(nodeID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fragments[nodeID])
}

func (s *fakeSink) errorCount(nodeID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.errors[nodeID])
}

func (s *fakeSink) lastFragment(nodeID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	frags := s.fragments[nodeID]
	if len(frags) == 0 {
		return ""
	}
	return frags[len(frags)-1]
}

// manualScheduler collects scheduled callbacks and fires them on
// demand, making backoff deterministic in tests.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	delay    time.Duration
	f        func()
	fired    bool
	canceled bool
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{}
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) func() {
	s.mu.Lock()
	t := &manualTimer{delay: d, f: f}
	s.timers = append(s.timers, t)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		t.canceled = true
		s.mu.Unlock()
	}
}

// fireNext runs the oldest pending timer and returns its delay. The
// second return is false when nothing was pending.
func (s *manualScheduler) fireNext() (time.Duration, bool) {
	s.mu.Lock()
	var next *manualTimer
	for _, t := range s.timers {
		if !t.fired && !t.canceled {
			next = t
			break
		}
	}
	if next == nil {
		s.mu.Unlock()
		return 0, false
	}
	next.fired = true
	s.mu.Unlock()

	next.f()
	return next.delay, true
}

// fireAll drains pending timers, including any scheduled while firing.
func (s *manualScheduler) fireAll() []time.Duration {
	var delays []time.Duration
	for {
		d, ok := s.fireNext()
		if !ok {
			return delays
		}
		delays = append(delays, d)
	}
}

func (s *manualScheduler) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.fired && !t.canceled {
			n++
		}
	}
	return n
}

// fakeRenderer scripts per-permalink outcomes: failUntil[p] = k means
// the first k Render calls for p fail.
type fakeRenderer struct {
	mu        sync.Mutex
	failUntil map[string]int
	calls     map[string]int
	markup    string
}

func (r *fakeRenderer) Render(ctx context.Context, permalink string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = make(map[string]int)
	}
	r.calls[permalink]++
	if r.calls[permalink] <= r.failUntil[permalink] {
		return "", errors.New("render unavailable")
	}
	return r.markup, nil
}

func (r *fakeRenderer) callCount(permalink string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[permalink]
}

// fakeHook counts post-processing invocations.
type fakeHook struct {
	mu      sync.Mutex
	calls   map[string]int
	err     error
	panics  bool
	upgrade string
}

func (h *fakeHook) Process(ctx context.Context, permalink, fragment string) (string, error) {
	h.mu.Lock()
	if h.calls == nil {
		h.calls = make(map[string]int)
	}
	h.calls[permalink]++
	h.mu.Unlock()
	if h.panics {
		panic("hook exploded")
	}
	return h.upgrade, h.err
}

func (h *fakeHook) callCount(permalink string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls[permalink]
}

// fakeFailureLog records terminal failures in memory.
type fakeFailureLog struct {
	mu       sync.Mutex
	recorded map[string]int
	cleared  map[string]int
}

func newFakeFailureLog() *fakeFailureLog {
	return &fakeFailureLog{recorded: make(map[string]int), cleared: make(map[string]int)}
}

func (l *fakeFailureLog) RecordFailure(permalink, nodeID string, attempts int, lastError string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recorded[permalink] = attempts
}

func (l *fakeFailureLog) ClearFailure(permalink string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cleared[permalink]++
}
