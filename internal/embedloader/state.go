// Package embedloader coordinates lazy loading of third-party embeds
// referenced by a story page. Each reader session mirrors the page's
// placeholders as descriptors; trigger paths (intersection events from
// the client, an eager visibility sweep after page load, and manual
// activation) drive descriptors through a bounded-retry load attempt
// that shares a single provider script fetch across the whole process.
package embedloader

// State is the lifecycle position of one embed descriptor.
type State int

const (
	// StatePending means the placeholder was discovered but nothing has
	// been triggered for it yet.
	StatePending State = iota
	// StateObserved means the descriptor is registered with the client's
	// intersection observer (or waiting out a retry backoff).
	StateObserved
	// StateLoading means a load attempt is in flight.
	StateLoading
	// StateLoaded is terminal success: the fragment is attached.
	StateLoaded
	// StateFailed is terminal failure: the retry budget is exhausted.
	// Only manual reactivation leaves this state.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateObserved:
		return "observed"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
