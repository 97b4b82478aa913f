package engine

import "time"

// Clock reports time elapsed since the session started.
type Clock interface {
	Now() time.Duration
}

type SystemClock struct {
	start time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

func (c *SystemClock) Now() time.Duration {
	return time.Since(c.start)
}

func (c *SystemClock) Start() time.Time {
	return c.start
}

// Countdown runs out a fixed duration after it is created.
type Countdown struct {
	clock    Clock
	deadline time.Duration
}

func NewCountdown(clock Clock, d time.Duration) *Countdown {
	return &Countdown{clock: clock, deadline: clock.Now() + d}
}

func (c *Countdown) Remaining() time.Duration {
	return c.deadline - c.clock.Now()
}

func (c *Countdown) Done() bool {
	return c.Remaining() <= 0
}
