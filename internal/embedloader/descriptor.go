package embedloader

import (
	"sync"

	"github.com/google/uuid"
)

// Descriptor is one lazy-loadable embed unit: the placeholder node it
// owns, the permalink it points at, and its lifecycle state. Permalink
// and NodeID are immutable after construction.
type Descriptor struct {
	ID        string
	NodeID    string
	Permalink string

	// HasPlaceholder records whether the container held the required
	// inner placeholder element at scan time.
	HasPlaceholder bool

	mu       sync.Mutex
	state    State
	attempts int
}

// NewDescriptor creates a Pending descriptor for a placeholder node.
func NewDescriptor(nodeID, permalink string, hasPlaceholder bool) *Descriptor {
	return &Descriptor{
		ID:             uuid.NewString(),
		NodeID:         nodeID,
		Permalink:      permalink,
		HasPlaceholder: hasPlaceholder,
		state:          StatePending,
	}
}

// State returns the current lifecycle state.
func (d *Descriptor) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Attempts returns the number of failed attempts so far.
func (d *Descriptor) Attempts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attempts
}

// beginAttempt claims the descriptor for a load attempt. It returns
// false when the descriptor is already loading or loaded, which makes
// every trigger path idempotent: at most one of them wins. Automatic
// paths also refuse terminally-failed descriptors; a manual trigger
// re-arms them with a fresh retry budget.
func (d *Descriptor) beginAttempt(manual bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state {
	case StateLoaded, StateLoading:
		return false
	case StateFailed:
		if !manual {
			return false
		}
		d.attempts = 0
	}
	d.state = StateLoading
	return true
}

// markLoaded records terminal success.
func (d *Descriptor) markLoaded() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = StateLoaded
}

// abandon returns the descriptor to Pending without counting an
// attempt. Used for configuration errors, which are never retried.
func (d *Descriptor) abandon() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = StatePending
}

// failedAttempt records one failed attempt. The counter is incremented
// and the descriptor is either parked in Observed awaiting a retry or,
// once the budget is exhausted, marked Failed. Returns the new count
// and whether the failure is terminal.
func (d *Descriptor) failedAttempt(maxRetries int) (attempts int, terminal bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attempts++
	if d.attempts > maxRetries {
		d.state = StateFailed
		return d.attempts, true
	}
	d.state = StateObserved
	return d.attempts, false
}

// markObserved notes that the descriptor was handed to the intersection
// observer. Only a Pending descriptor moves; later states win.
func (d *Descriptor) markObserved() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StatePending {
		d.state = StateObserved
	}
}

// Registry holds the descriptors for one reader session, keyed by
// placeholder node. One descriptor per node, enforced at registration.
type Registry struct {
	mu     sync.Mutex
	byNode map[string]*Descriptor
	order  []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byNode: make(map[string]*Descriptor)}
}

// Add registers a descriptor. Registering a second descriptor for the
// same node returns ErrDuplicateNode.
func (r *Registry) Add(d *Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byNode[d.NodeID]; ok {
		return ErrDuplicateNode
	}
	r.byNode[d.NodeID] = d
	r.order = append(r.order, d.NodeID)
	return nil
}

// Get returns the descriptor for a node, if registered.
func (r *Registry) Get(nodeID string) (*Descriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byNode[nodeID]
	return d, ok
}

// All returns every descriptor in registration order.
func (r *Registry) All() []*Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byNode[id])
	}
	return out
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}
