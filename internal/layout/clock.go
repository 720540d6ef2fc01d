package layout

// Handle identifies a scheduled tick.
type Handle uint64

// Clock schedules simulation ticks. Implementations decide when the callback
// runs (next animation frame, next loop iteration, or on demand in tests) but
// must run callbacks one at a time.
type Clock interface {
	RequestTick(fn func()) Handle
	Cancel(h Handle)
}

type pendingTick struct {
	handle Handle
	fn     func()
}

// ManualClock fires ticks only when asked. It drives the simulation
// synchronously in tests and headless runs.
type ManualClock struct {
	next    Handle
	pending []pendingTick
}

// NewManualClock returns an empty manual clock.
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

func (c *ManualClock) RequestTick(fn func()) Handle {
	c.next++
	c.pending = append(c.pending, pendingTick{handle: c.next, fn: fn})
	return c.next
}

func (c *ManualClock) Cancel(h Handle) {
	for i, p := range c.pending {
		if p.handle == h {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return
		}
	}
}

// Pending returns the number of scheduled callbacks.
func (c *ManualClock) Pending() int {
	return len(c.pending)
}

// Advance fires the oldest pending callback. It returns false when nothing
// was scheduled.
func (c *ManualClock) Advance() bool {
	if len(c.pending) == 0 {
		return false
	}
	p := c.pending[0]
	c.pending = c.pending[1:]
	p.fn()
	return true
}

// RunUntilIdle fires callbacks until none are pending or max have fired
// (max <= 0 means no limit). It returns how many fired.
func (c *ManualClock) RunUntilIdle(max int) int {
	fired := 0
	for max <= 0 || fired < max {
		if !c.Advance() {
			break
		}
		fired++
	}
	return fired
}
