package embedloader

import "time"

// Scheduler runs a function after a delay. The production scheduler
// wraps time.AfterFunc; tests substitute a manual implementation to
// drive retry backoff deterministically.
type Scheduler interface {
	// AfterFunc schedules f after d and returns a cancel function.
	AfterFunc(d time.Duration, f func()) (cancel func())
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) func() {
	t := time.AfterFunc(d, f)
	return func() { t.Stop() }
}

// NewScheduler returns the wall-clock scheduler.
func NewScheduler() Scheduler { return realScheduler{} }
