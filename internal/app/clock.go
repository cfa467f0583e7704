package app

import "time"

// Clock is the per-seat countdown for one match. A zero budget means the match is untimed
// and nothing ever expires.
//
// The clock only does bookkeeping; callers pass the time they read from the match time
// source so that the periodic tick and accepted intents share one reading.
type Clock struct {
	budget    time.Duration
	remaining []time.Duration
	started   bool
	running   bool
	last      time.Time
}

// NewClock builds a clock for seats with the same budget each.
func NewClock(seats int, budget time.Duration) *Clock {
	if budget < 0 {
		budget = 0
	}
	c := &Clock{budget: budget, remaining: make([]time.Duration, seats)}
	for i := range c.remaining {
		c.remaining[i] = budget
	}
	return c
}

// Timed reports whether the clock has a budget at all.
func (c *Clock) Timed() bool { return c.budget > 0 }

// Started reports whether the first intent has been accepted.
func (c *Clock) Started() bool { return c.started }

// Running reports whether time is currently being consumed.
func (c *Clock) Running() bool { return c.running }

// Start begins counting from now. Later calls are no-ops.
func (c *Clock) Start(now time.Time) {
	if c.started || !c.Timed() {
		c.started = true
		return
	}
	c.started = true
	c.running = true
	c.last = now
}

// Charge deducts the time since the previous reading from seat and reports whether
// the seat is out of time.
func (c *Clock) Charge(seat int, now time.Time) bool {
	if !c.running {
		return false
	}
	if elapsed := now.Sub(c.last); elapsed > 0 {
		c.remaining[seat] -= elapsed
	}
	c.last = now
	return c.remaining[seat] <= 0
}

// Expired reports whether seat would be out of time at now. It does not mutate the clock.
func (c *Clock) Expired(seat int, now time.Time) bool {
	if !c.running || seat < 0 || seat >= len(c.remaining) {
		return false
	}
	return c.remaining[seat]-now.Sub(c.last) <= 0
}

// Flag zeroes seat's budget after a timeout and restarts the count at now for whoever moves next.
func (c *Clock) Flag(seat int, now time.Time) {
	if seat >= 0 && seat < len(c.remaining) {
		c.remaining[seat] = 0
	}
	c.last = now
}

// Stop freezes the clock for good.
func (c *Clock) Stop() { c.running = false }

// Remaining returns the stored budget of seat as of the last reading.
func (c *Clock) Remaining(seat int) time.Duration {
	if seat < 0 || seat >= len(c.remaining) {
		return 0
	}
	return c.remaining[seat]
}
