package clock

import "time"

// FakeClock is a manually advanced Clock. Tests use it to walk the
// scheduler through the calendar one tick at a time.
type FakeClock struct {
	now time.Time
}

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	return c.now
}

// Advance moves the clock forward. Drive ticks explicitly rather than
// advancing concurrently with a running scheduler loop.
func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
