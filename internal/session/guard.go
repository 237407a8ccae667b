package session

import "sync/atomic"

// Guard is the per-session in-flight submission latch. Any trigger that
// attempts to start a submission while the latch is set is dropped; the latch
// is released on every exit path of the dispatched call. This, not the state
// machine, is the authoritative duplicate-suppression mechanism: triggers
// arrive from independently scheduled sources.
type Guard struct {
	inFlight atomic.Bool
}

// TryAcquire sets the latch and returns true, or returns false if a
// submission is already in flight.
func (g *Guard) TryAcquire() bool {
	return g.inFlight.CompareAndSwap(false, true)
}

// Release clears the latch.
func (g *Guard) Release() {
	g.inFlight.Store(false)
}

// InFlight reports whether a submission is currently dispatched.
func (g *Guard) InFlight() bool {
	return g.inFlight.Load()
}
