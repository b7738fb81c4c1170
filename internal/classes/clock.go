package classes

import "sync/atomic"

// Clock is a monotonic logical clock for class timestamps.
//
// Every compile stamps its RuntimeClass with Next(), so a larger timestamp
// always means a newer compile regardless of wall-clock resolution. Objects
// compare timestamps to decide whether to hot swap.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific value. Used when a
// catalogue is reopened and timestamps must keep increasing.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next timestamp.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued timestamp.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// AdvanceTo moves the clock forward so the next timestamp is greater than
// ts. It never moves the clock backwards.
func (c *Clock) AdvanceTo(ts int64) {
	for {
		cur := c.seq.Load()
		if cur >= ts || c.seq.CompareAndSwap(cur, ts) {
			return
		}
	}
}
