package ingest

import "time"

// gate coalesces bursts of raw signals into trailing refresh runs: the
// first signal of a burst opens a window, every further signal inside
// it is absorbed, and exactly one execution happens at window expiry.
// A signal can therefore never be dropped outright, and no two runs of
// the same kind start closer together than the window width.
type gate struct {
	interval time.Duration
	pending  bool
}

// arm records a signal. It returns true when a new window opened, in
// which case the caller schedules fire() after interval.
func (g *gate) arm() bool {
	if g.pending {
		return false
	}
	g.pending = true
	return true
}

// fire closes the window. The caller runs the refresh exactly once per
// fire, whether or not the refresh itself succeeds.
func (g *gate) fire() {
	g.pending = false
}
