package engine

import "time"

// clock tracks elapsed playback time from wall-clock instants instead of
// polling the decoder. While running, elapsed is the base position plus the
// time since the reference instant; while paused it is frozen at the base
// position plus the span between the reference and pause instants.
//
// Only the engine worker mutates the clock; readers take a snapshot through
// the engine's state mutex.
type clock struct {
	reference time.Time
	running   bool
	base      time.Duration
	paused    bool
	pausedAt  time.Time
}

// start resets the clock to run from now at the given position. Used on
// play, seek and the restart after a device switch.
func (c *clock) start(now time.Time, position time.Duration) {
	c.reference = now
	c.running = true
	c.base = position
	c.paused = false
	c.pausedAt = time.Time{}
}

// pause freezes elapsed time at now. No-op when already paused or stopped.
func (c *clock) pause(now time.Time) {
	if !c.running || c.paused {
		return
	}
	c.paused = true
	c.pausedAt = now
}

// resume folds the frozen span into the base position and restarts the
// reference from now. No-op when not paused.
func (c *clock) resume(now time.Time) {
	if !c.paused {
		return
	}
	c.base += c.pausedAt.Sub(c.reference)
	c.reference = now
	c.paused = false
	c.pausedAt = time.Time{}
}

// reset returns the clock to the stopped state.
func (c *clock) reset() {
	*c = clock{}
}

// elapsed returns the playback position at now.
func (c *clock) elapsed(now time.Time) time.Duration {
	if !c.running {
		return 0
	}
	if c.paused {
		return c.base + c.pausedAt.Sub(c.reference)
	}
	return c.base + now.Sub(c.reference)
}
