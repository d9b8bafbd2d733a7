// Package playback drives the viewer's playback position over a log's time range.
package playback

import (
	"context"
	"math"
	"sync"
	"time"
)

// Defaults match the viewer: 0.05 s of log time every 50 ms.
const (
	DefaultStep     = 0.05
	DefaultInterval = 50 * time.Millisecond
)

// State is a snapshot of a Clock.
type State struct {
	Time    float64 `json:"time"`
	MaxTime float64 `json:"maxTime"`
	Playing bool    `json:"playing"`
}

// Clock is a playback position in [0, maxTime] that advances by a fixed step.
// It is safe for concurrent use.
type Clock struct {
	mu      sync.Mutex
	time    float64
	maxTime float64
	step    float64
	playing bool
}

// NewClock creates a paused clock at time 0. A non-positive step uses DefaultStep.
func NewClock(maxTime, step float64) *Clock {
	if step <= 0 {
		step = DefaultStep
	}
	if maxTime < 0 {
		maxTime = 0
	}
	return &Clock{maxTime: maxTime, step: step}
}

func (c *Clock) state() State {
	return State{Time: c.time, MaxTime: c.maxTime, Playing: c.playing}
}

// State returns the current state.
func (c *Clock) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state()
}

func (c *Clock) Play() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playing = true
	return c.state()
}

func (c *Clock) Pause() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playing = false
	return c.state()
}

func (c *Clock) Toggle() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playing = !c.playing
	return c.state()
}

// Reset rewinds to 0 and pauses.
func (c *Clock) Reset() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.time = 0
	c.playing = false
	return c.state()
}

// Seek moves to t, clamped to [0, maxTime]. The playing flag is unchanged.
func (c *Clock) Seek(t float64) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case t < 0 || math.IsNaN(t):
		t = 0
	case t > c.maxTime:
		t = c.maxTime
	}
	c.time = t
	return c.state()
}

// Advance moves forward one step. Reaching maxTime clamps there and pauses.
func (c *Clock) Advance() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.time + c.step
	if next >= c.maxTime {
		c.time = c.maxTime
		c.playing = false
	} else {
		c.time = next
	}
	return c.state()
}

// Run advances the clock on every tick while it is playing and reports each
// new state to onTick. It returns when ctx is done.
func (c *Clock) Run(ctx context.Context, interval time.Duration, onTick func(State)) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !c.State().Playing {
				continue
			}
			s := c.Advance()
			if onTick != nil {
				onTick(s)
			}
		}
	}
}
