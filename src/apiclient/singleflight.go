package apiclient

import "sync"

// -----------------------------------------------------------------------------
// RefreshCoordinator serializes token refresh cycles. At most one refresh runs
// process-wide; callers that hit an authorization failure while one is in
// flight enqueue a callback instead of starting a second refresh. The queue is
// drained exactly once when the refresh settles, success or failure.
// -----------------------------------------------------------------------------

type RefreshCoordinator struct {
	mu       sync.Mutex
	inFlight bool
	queue    []func(error)
}

// -----------------------------------------------------------------------------

// Acquire either claims the refresh slot (returns true, cb is discarded) or
// enqueues cb behind the current holder (returns false). Both outcomes are
// decided under one lock acquisition, so a callback can never slip in after a
// drain has started.
func (c *RefreshCoordinator) Acquire(cb func(error)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inFlight {
		c.queue = append(c.queue, cb)
		return false
	}
	c.inFlight = true
	return true
}

// -----------------------------------------------------------------------------

// RunExclusive executes refreshFn for the slot holder. Whatever the outcome,
// every queued callback is invoked once with refreshFn's error and the slot is
// released.
func (c *RefreshCoordinator) RunExclusive(refreshFn func() error) (err error) {
	defer func() { c.settle(err) }()
	return refreshFn()
}

// -----------------------------------------------------------------------------

func (c *RefreshCoordinator) settle(err error) {
	c.mu.Lock()
	queued := c.queue
	c.queue = nil
	c.inFlight = false
	c.mu.Unlock()

	for _, cb := range queued {
		cb(err)
	}
}

// -----------------------------------------------------------------------------

// InFlight reports whether a refresh currently holds the slot.
func (c *RefreshCoordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}
