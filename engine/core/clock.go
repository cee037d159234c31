package core

import (
	"github.com/loov/hrtime"
)

// Clock measures elapsed wall time using the monotonic high resolution
// timer, so frame deltas are immune to system clock adjustments.
type Clock struct {
	start   float64
	elapsed float64
}

func NewClock() *Clock {
	return &Clock{}
}

func (c *Clock) Start() {
	c.start = hrtime.Now().Seconds()
	c.elapsed = 0
}

func (c *Clock) Update() {
	if c.start != 0 {
		c.elapsed = hrtime.Now().Seconds() - c.start
	}
}

func (c *Clock) Stop() {
	c.start = 0
}

func (c *Clock) Elapsed() float64 {
	return c.elapsed
}
